// SPDX-FileCopyrightText: 2026 The guestinit authors
//
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/lightvm/guestinit/internal/kmsg"
	"github.com/lightvm/guestinit/sysinit"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	// Boot diagnostics additionally go to dmesg. Missing /dev/kmsg only
	// degrades to stderr.
	if hook, err := kmsg.New(); err == nil {
		logrus.AddHook(hook)
	}

	plan, err := sysinit.ResolveConfig(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	exitCode, err := sysinit.Run(plan)
	if err != nil {
		logrus.Errorf("boot failed: %v", err)
		os.Exit(sysinit.ExitCode(err))
	}

	os.Exit(exitCode)
}
