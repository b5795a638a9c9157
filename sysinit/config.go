// SPDX-FileCopyrightText: 2026 The guestinit authors
//
// SPDX-License-Identifier: MIT

package sysinit

import (
	"errors"
	"flag"
	"fmt"
	"slices"
	"strconv"
)

// defaultShell is armed as debug shell when no arguments are given.
const defaultShell = "/bin/sh"

// defaultCommand is the compiled-in workload used when no arguments are
// given.
func defaultCommand() []string {
	return []string{"/bin/gcs", "-loglevel", "debug", "-logfile=/run/gcs/gcs.log"}
}

// ErrUsage is returned for invalid command line input.
var ErrUsage = errors.New("usage: init [-d shell] [-e port] [-w] [command [args...]]")

// BootPlan is the resolved boot configuration.
type BootPlan struct {
	// EntropyPort is the vsock port to read boot entropy from. Zero
	// disables entropy injection.
	EntropyPort uint32

	// Overlay mounts writable overlays over /etc and /var.
	Overlay bool

	// DebugShell, if set, is spawned after the workload and takes over as
	// the tracked primary process.
	DebugShell string

	// Command is the workload argument vector.
	Command []string
}

// ResolveConfig turns the command line into a [BootPlan].
//
// Without arguments the plan runs the compiled-in default workload with the
// debug shell pre-armed. Flag parsing stops at the first positional
// argument; the rest is the workload vector.
func ResolveConfig(args []string) (BootPlan, error) {
	if len(args) <= 1 {
		return BootPlan{
			DebugShell: defaultShell,
			Command:    defaultCommand(),
		}, nil
	}

	var plan BootPlan

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.StringVar(&plan.DebugShell, "d", "", "spawn the given debug shell")
	fs.BoolVar(&plan.Overlay, "w", false, "mount writable overlays for /etc and /var")

	fs.Func(
		"e",
		"vsock port to read boot entropy from",
		func(s string) error {
			port, err := strconv.Atoi(s)
			if err != nil || port <= 0 {
				return errors.New("invalid entropy port")
			}

			plan.EntropyPort = uint32(port)

			return nil
		},
	)

	if err := fs.Parse(args[1:]); err != nil {
		return BootPlan{}, fmt.Errorf("%w: %w", ErrUsage, err)
	}

	plan.Command = slices.Clone(fs.Args())

	return plan, nil
}
