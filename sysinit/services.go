// SPDX-FileCopyrightText: 2026 The guestinit authors
//
// SPDX-License-Identifier: MIT

package sysinit

import (
	"os"

	"github.com/sirupsen/logrus"
)

// serviceCommands lists the auxiliary daemons started best-effort at boot.
// None of them is required to be present on an image.
func serviceCommands() [][]string {
	return [][]string{
		{"/bin/nvidia-persistenced"},
		{"/bin/nv-fabricmanager", "-c", "/usr/share/nvidia/nvswitch/fabricmanager.cfg"},
	}
}

// StartServices launches every present auxiliary daemon. The daemons are
// not tracked; they are reaped like any other descendant. Absence and
// launch failure are logged and skipped.
func StartServices() {
	startServices(serviceCommands(), os.Stat, Spawn)
}

func startServices(
	commands [][]string,
	stat func(path string) (os.FileInfo, error),
	spawn func(argv []string) (int, error),
) {
	for _, argv := range commands {
		// Spawn searches PATH only after forking. Stat first to skip the
		// pointless fork for binaries the image does not ship.
		if _, err := stat(argv[0]); err != nil {
			logrus.Warnf("%s not present, skipping", argv[0])
			continue
		}

		logrus.Infof("starting %s", argv[0])

		if _, err := spawn(argv); err != nil {
			logrus.Warnf("start %s: %v", argv[0], err)
		}
	}
}
