// SPDX-FileCopyrightText: 2026 The guestinit authors
//
// SPDX-License-Identifier: MIT

package sysinit

import (
	"github.com/sirupsen/logrus"
)

// Run executes the boot sequence described by plan and supervises the
// primary workload. It returns the exit code this process should exit
// with, which is the primary's translated termination status.
//
// Any error is fatal: a failed step leaves filesystem, cgroup or network
// state inconsistent, and no later step could assume anything anymore.
// Best-effort subsystems (module insertion, auxiliary services) handle
// their own failures internally and only warn.
func Run(plan BootPlan) (int, error) {
	HoldSignals()

	if err := initRlimit(); err != nil {
		return 0, err
	}

	if err := MountDev(); err != nil {
		return 0, err
	}

	if err := Apply(baseOps()); err != nil {
		return 0, err
	}

	if plan.Overlay {
		if err := Apply(overlayOps()); err != nil {
			return 0, err
		}
	}

	if err := MountCgroups(); err != nil {
		return 0, err
	}

	if err := EnsureLoopback(); err != nil {
		return 0, err
	}

	if plan.EntropyPort != 0 {
		if err := InjectEntropy(plan.EntropyPort); err != nil {
			return 0, err
		}
	}

	if dir, err := ModulesDir(); err != nil {
		logrus.Warnf("modules: %v", err)
	} else {
		new(Loader).LoadAll(dir)
	}

	StartServices()

	pid, err := Spawn(plan.Command)

	if plan.DebugShell != "" {
		// The debug shell takes over as the tracked primary. A still
		// running workload becomes an untracked descendant and is reaped
		// silently.
		pid, err = Spawn([]string{plan.DebugShell})
	}

	if err != nil {
		return 0, err
	}

	return ReapUntil(pid)
}
