// SPDX-FileCopyrightText: 2026 The guestinit authors
//
// SPDX-License-Identifier: MIT

// Package kmsg routes log entries to the kernel log device. The guest
// image cannot be assumed to run syslogd or similar, so boot diagnostics
// go to dmesg directly.
package kmsg

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

const device = "/dev/kmsg"

// syslog(2) severities used as record prefixes.
const (
	priErr     = 3
	priWarning = 4
	priInfo    = 6
	priDebug   = 7
)

// Hook writes every logrus entry to the kernel log device in its native
// "<level>message" record format, one write per record.
type Hook struct {
	out io.Writer
}

// New opens the kernel log device for writing.
func New() (*Hook, error) {
	f, err := os.OpenFile(device, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}

	return &Hook{out: f}, nil
}

// NewWithWriter returns a hook writing records to the given writer instead
// of the kernel log device.
func NewWithWriter(out io.Writer) *Hook {
	return &Hook{out: out}
}

// Levels implements [logrus.Hook].
func (h *Hook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements [logrus.Hook].
func (h *Hook) Fire(entry *logrus.Entry) error {
	_, err := fmt.Fprintf(h.out, "<%d>%s", priority(entry.Level), entry.Message)

	return err
}

func priority(level logrus.Level) int {
	switch level {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		return priErr
	case logrus.WarnLevel:
		return priWarning
	case logrus.DebugLevel, logrus.TraceLevel:
		return priDebug
	default:
		return priInfo
	}
}
