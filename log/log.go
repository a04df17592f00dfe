// Copyright 2023 Pava. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package log provides a minimal leveled key/value logger. The library
// accepts any Logger through Options; everything here is replaceable by
// an adapter to the host application's logging framework.
package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
)

// DefaultLogger is the package-level logger used by the helpers below.
var DefaultLogger Logger = NewStdLogger(os.Stderr)

// Logger is a logger interface.
type Logger interface {
	Log(level Level, keyvals ...interface{}) error
}

type stdLogger struct {
	w    io.Writer
	pool *sync.Pool
	mu   sync.Mutex
}

// NewStdLogger returns a logger that writes "level=... k=v ..." lines to w.
func NewStdLogger(w io.Writer) Logger {
	return &stdLogger{
		w: w,
		pool: &sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}
}

// Log prints the kv pairs log to the writer.
func (l *stdLogger) Log(level Level, keyvals ...interface{}) error {
	if len(keyvals) == 0 {
		return nil
	}
	if (len(keyvals) & 1) == 1 {
		keyvals = append(keyvals, "KEYVALS UNPAIRED")
	}
	buf := l.pool.Get().(*bytes.Buffer)
	defer l.pool.Put(buf)
	buf.Reset()

	buf.WriteString(LevelKey + "=" + level.String())
	for i := 0; i < len(keyvals); i += 2 {
		_, _ = fmt.Fprintf(buf, " %s=%v", keyvals[i], keyvals[i+1])
	}
	buf.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.w.Write(buf.Bytes())
	return err
}

// Debugf logs a message at debug level with the default logger.
func Debugf(format string, a ...interface{}) {
	_ = DefaultLogger.Log(LevelDebug, "msg", fmt.Sprintf(format, a...))
}

// Infof logs a message at info level with the default logger.
func Infof(format string, a ...interface{}) {
	_ = DefaultLogger.Log(LevelInfo, "msg", fmt.Sprintf(format, a...))
}

// Warnf logs a message at warn level with the default logger.
func Warnf(format string, a ...interface{}) {
	_ = DefaultLogger.Log(LevelWarn, "msg", fmt.Sprintf(format, a...))
}

// Errorf logs a message at error level with the default logger.
func Errorf(format string, a ...interface{}) {
	_ = DefaultLogger.Log(LevelError, "msg", fmt.Sprintf(format, a...))
}
