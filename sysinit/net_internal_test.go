// SPDX-FileCopyrightText: 2026 The guestinit authors
//
// SPDX-License-Identifier: MIT

package sysinit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestInterfaceUpUnsupportedFamily(t *testing.T) {
	// An address family the kernel rejects is a no-op, expected for
	// AF_INET6 on IPv6-less kernels. No interface state is touched since
	// no control socket exists to touch it with.
	var domains []int

	socket := func(domain, typ, proto int) (int, error) {
		domains = append(domains, domain)

		assert.Equal(t, unix.SOCK_DGRAM, typ)
		assert.Equal(t, 0, proto)

		return -1, unix.EAFNOSUPPORT
	}

	err := interfaceUp(loopbackName, unix.AF_INET6, socket)

	require.NoError(t, err)
	assert.Equal(t, []int{unix.AF_INET6}, domains)
}

func TestInterfaceUpSocketFailure(t *testing.T) {
	socket := func(int, int, int) (int, error) {
		return -1, unix.EPERM
	}

	err := interfaceUp(loopbackName, unix.AF_INET, socket)

	require.ErrorIs(t, err, unix.EPERM)
}
