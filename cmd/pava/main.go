// Copyright 2023 Pava. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	pava "github.com/jonaslsaa/pava"
	"github.com/jonaslsaa/pava/log"
)

var (
	verbose bool
	trace   bool
)

// resolveClassPath infers the .class suffix when the bare path does not
// exist.
func resolveClassPath(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if !strings.HasSuffix(path, ".class") {
		withSuffix := path + ".class"
		if _, err := os.Stat(withSuffix); err == nil {
			return withSuffix, nil
		}
	}
	return "", fmt.Errorf("file %s does not exist", path)
}

func buildOptions() *pava.Options {
	opts := &pava.Options{TraceExecution: trace}
	level := log.LevelError
	if verbose || trace {
		level = log.LevelDebug
	}
	opts.Logger = log.NewFilter(log.NewStdLogger(os.Stderr), log.FilterLevel(level))
	return opts
}

func openClass(path string) (*pava.File, error) {
	resolved, err := resolveClassPath(path)
	if err != nil {
		return nil, err
	}
	cf, err := pava.New(resolved, buildOptions())
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", resolved, err)
	}
	if err := cf.Parse(); err != nil {
		cf.Close()
		return nil, fmt.Errorf("parsing %s: %w", resolved, err)
	}
	return cf, nil
}

func runClass(cmd *cobra.Command, args []string) error {
	cf, err := openClass(args[0])
	if err != nil {
		return err
	}
	defer cf.Close()

	interp := pava.NewInterpreter(nil, pava.NewStdoutSink(), cf.Options())
	return interp.RunMain(cf)
}

func main() {

	var rootCmd = &cobra.Command{
		Use:           "pava <path/to/Main.class>",
		Short:         "A class-file parser and bytecode interpreter",
		Long:          "pava parses a Java class file and interprets its bytecode against a minimal host runtime",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runClass,
	}

	var runCmd = &cobra.Command{
		Use:   "run <path/to/Main.class>",
		Short: "Parse a class file and execute its main method",
		Args:  cobra.ExactArgs(1),
		RunE:  runClass,
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("pava version 0.1.0")
		},
	}

	var dumpCmd = &cobra.Command{
		Use:   "dump <path/to/Main.class>",
		Short: "Dump the decoded class structure",
		Long:  "Dumps the constant pool, methods, fields and attributes of a class file",
		Args:  cobra.ExactArgs(1),
		RunE:  dump,
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(dumpCmd)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&trace, "trace", "t", false, "trace each executed opcode")
	dumpCmd.Flags().BoolVarP(&wantPool, "pool", "", false, "dump the constant pool")
	dumpCmd.Flags().BoolVarP(&expandPool, "expand", "", false, "expand pool cross references")
	dumpCmd.Flags().BoolVarP(&wantMethods, "methods", "", false, "dump methods")
	dumpCmd.Flags().BoolVarP(&wantFields, "fields", "", false, "dump fields")
	dumpCmd.Flags().BoolVarP(&wantAttrs, "attributes", "", false, "dump class attributes")
	dumpCmd.Flags().BoolVarP(&wantAll, "all", "", false, "dump everything")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}
