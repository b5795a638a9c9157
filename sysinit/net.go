// SPDX-FileCopyrightText: 2026 The guestinit authors
//
// SPDX-License-Identifier: MIT

package sysinit

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

const loopbackName = "lo"

type socketFunc func(domain, typ, proto int) (int, error)

// EnsureLoopback brings the loopback interface up for IPv4 and IPv6.
//
// Kernel configures the addresses on its own.
func EnsureLoopback() error {
	for _, family := range []int{unix.AF_INET, unix.AF_INET6} {
		if err := interfaceUp(loopbackName, family, unix.Socket); err != nil {
			return err
		}
	}

	return nil
}

// interfaceUp sets IFF_UP and IFF_RUNNING on the named interface for the
// given address family. A family the kernel does not support is a no-op,
// expected on IPv6-less kernels.
func interfaceUp(name string, family int, socket socketFunc) error {
	sock, err := socket(family, unix.SOCK_DGRAM, 0)
	if err != nil {
		if errors.Is(err, unix.EAFNOSUPPORT) {
			return nil
		}

		return fmt.Errorf("control socket family %d: %w", family, err)
	}
	defer unix.Close(sock)

	ifReq, err := unix.NewIfreq(name)
	if err != nil {
		return fmt.Errorf("interface request %s: %w", name, err)
	}

	if err := unix.IoctlIfreq(sock, unix.SIOCGIFFLAGS, ifReq); err != nil {
		return fmt.Errorf("get flags %s: %w", name, err)
	}

	ifReq.SetUint16(ifReq.Uint16() | unix.IFF_UP | unix.IFF_RUNNING)

	if err := unix.IoctlIfreq(sock, unix.SIOCSIFFLAGS, ifReq); err != nil {
		return fmt.Errorf("set flags %s: %w", name, err)
	}

	return nil
}
