// Copyright 2023 Pava. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	pava "github.com/jonaslsaa/pava"
)

var (
	wantPool    bool
	expandPool  bool
	wantMethods bool
	wantFields  bool
	wantAttrs   bool
	wantAll     bool
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4682B4"))
	indexStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	tagStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#228B22"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	flagStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8800"))
)

func dump(cmd *cobra.Command, args []string) error {
	cf, err := openClass(args[0])
	if err != nil {
		return err
	}
	defer cf.Close()

	name, err := cf.ThisClassName()
	if err != nil {
		return err
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("class %s", name)),
		valueStyle.Render(fmt.Sprintf("(version %s)", cf.Version)))
	if len(cf.AccessFlags) > 0 {
		fmt.Println(flagStyle.Render(strings.Join(cf.AccessFlags, " ")))
	}

	if wantPool || wantAll {
		dumpPool(cf)
	}
	if wantFields || wantAll {
		dumpFields(cf)
	}
	if wantMethods || wantAll {
		dumpMethods(cf)
	}
	if wantAttrs || wantAll {
		dumpAttributes(cf)
	}
	if !wantPool && !wantFields && !wantMethods && !wantAttrs && !wantAll {
		// With no selection, summarize everything.
		dumpPool(cf)
		dumpFields(cf)
		dumpMethods(cf)
		dumpAttributes(cf)
	}
	return nil
}

func dumpPool(cf *pava.File) {
	fmt.Println(titleStyle.Render("Constant pool:"))
	for i := range cf.ConstantPool {
		entry := &cf.ConstantPool[i]
		index := uint16(i + 1)
		if entry.Tag == pava.ConstantUnusable {
			continue
		}
		line := fmt.Sprintf("%s %s %s",
			indexStyle.Render(fmt.Sprintf("%5d", index)),
			tagStyle.Render(fmt.Sprintf("%-18s", entry.Tag)),
			valueStyle.Render(entryString(cf, entry)))
		fmt.Println(line)
		if expandPool {
			if expanded := expandEntry(cf, index); expanded != "" {
				fmt.Println(indexStyle.Render("      // " + expanded))
			}
		}
	}
}

// entryString renders the raw fields of a pool entry.
func entryString(cf *pava.File, entry *pava.ConstantPoolEntry) string {
	switch entry.Tag {
	case pava.ConstantUtf8:
		s, err := pava.DecodeMUTF8(entry.Bytes)
		if err != nil {
			return fmt.Sprintf("<%d undecodable bytes>", len(entry.Bytes))
		}
		return fmt.Sprintf("%q", s)
	case pava.ConstantInteger:
		return fmt.Sprintf("%d", entry.Int)
	case pava.ConstantFloat:
		return fmt.Sprintf("%g", entry.Float)
	case pava.ConstantLong:
		return fmt.Sprintf("%d", entry.Long)
	case pava.ConstantDouble:
		return fmt.Sprintf("%g", entry.Double)
	case pava.ConstantClass:
		return fmt.Sprintf("name=#%d", entry.NameIndex)
	case pava.ConstantString:
		return fmt.Sprintf("string=#%d", entry.StringIndex)
	case pava.ConstantFieldref, pava.ConstantMethodref, pava.ConstantInterfaceMethodref:
		return fmt.Sprintf("class=#%d name_and_type=#%d", entry.ClassIndex, entry.NameAndTypeIndex)
	case pava.ConstantNameAndType:
		return fmt.Sprintf("name=#%d descriptor=#%d", entry.NameIndex, entry.DescriptorIndex)
	case pava.ConstantMethodHandle:
		return fmt.Sprintf("kind=%d reference=#%d", entry.ReferenceKind, entry.ReferenceIndex)
	case pava.ConstantMethodType:
		return fmt.Sprintf("descriptor=#%d", entry.DescriptorIndex)
	case pava.ConstantInvokeDynamic:
		return fmt.Sprintf("bootstrap=#%d name_and_type=#%d",
			entry.BootstrapMethodAttrIndex, entry.NameAndTypeIndex)
	}
	return ""
}

// expandEntry resolves an entry's cross references to human-readable text.
func expandEntry(cf *pava.File, index uint16) string {
	entry, err := cf.At(index)
	if err != nil {
		return ""
	}
	switch entry.Tag {
	case pava.ConstantClass:
		if name, err := cf.ClassNameAt(index); err == nil {
			return name
		}
	case pava.ConstantString:
		if s, err := cf.StringAt(index); err == nil {
			return fmt.Sprintf("%q", s)
		}
	case pava.ConstantFieldref:
		if ref, err := cf.FieldrefAt(index); err == nil {
			return ref.String()
		}
	case pava.ConstantMethodref:
		if ref, err := cf.MethodrefAt(index); err == nil {
			return ref.String()
		}
	case pava.ConstantNameAndType:
		if name, descriptor, err := cf.NameAndTypeAt(index); err == nil {
			return name + ":" + descriptor
		}
	}
	return ""
}

func dumpFields(cf *pava.File) {
	if len(cf.Fields) == 0 {
		return
	}
	fmt.Println(titleStyle.Render("Fields:"))
	for i := range cf.Fields {
		field := &cf.Fields[i]
		fmt.Printf("  %s %s %s\n",
			flagStyle.Render(strings.Join(field.AccessFlags, " ")),
			valueStyle.Render(field.Name),
			tagStyle.Render(field.Descriptor))
	}
}

func dumpMethods(cf *pava.File) {
	if len(cf.Methods) == 0 {
		return
	}
	fmt.Println(titleStyle.Render("Methods:"))
	for i := range cf.Methods {
		method := &cf.Methods[i]
		fmt.Printf("  %s %s%s\n",
			flagStyle.Render(strings.Join(method.AccessFlags, " ")),
			valueStyle.Render(method.Name),
			tagStyle.Render(method.Descriptor))
		if code := method.CodeAttribute(); code != nil {
			fmt.Println(indexStyle.Render(fmt.Sprintf(
				"      Code: %d bytes, max_stack=%d, max_locals=%d",
				len(code.Code), code.MaxStack, code.MaxLocals)))
		}
	}
}

func dumpAttributes(cf *pava.File) {
	if len(cf.Attributes) == 0 {
		return
	}
	fmt.Println(titleStyle.Render("Attributes:"))
	for i := range cf.Attributes {
		attr := &cf.Attributes[i]
		fmt.Printf("  %s %s\n",
			valueStyle.Render(attr.Name),
			indexStyle.Render(fmt.Sprintf("(%d bytes)", attr.Length)))
	}
}
