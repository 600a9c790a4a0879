// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package platform

import "github.com/sirupsen/logrus"

// LogrusLogger implements collector.Logger on top of a logrus.FieldLogger,
// so every ALLOCATE/MARK/SWEEP event the core emits joins the host's
// existing structured log stream instead of a bespoke one.
type LogrusLogger struct {
	entry logrus.FieldLogger
}

// NewLogrusLogger wraps l. A nil l falls back to logrus.StandardLogger().
func NewLogrusLogger(l logrus.FieldLogger) LogrusLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return LogrusLogger{entry: l}
}

func (l LogrusLogger) Event(name string, fields map[string]any) {
	f := make(logrus.Fields, len(fields))
	for k, v := range fields {
		f[k] = v
	}
	l.entry.WithFields(f).Debug(name)
}
