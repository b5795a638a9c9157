// SPDX-FileCopyrightText: 2026 The guestinit authors
//
// SPDX-License-Identifier: MIT

package sysinit

import (
	"errors"

	"golang.org/x/sys/unix"
)

// ExitCode derives the process exit code for a fatal boot error: the
// embedded errno value if there is one, 1 otherwise.
func ExitCode(err error) int {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}

	return 1
}
