// SPDX-FileCopyrightText: 2026 The guestinit authors
//
// SPDX-License-Identifier: MIT

package sysinit

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// initRlimit raises the hard open-files limit. The historical kernel
// default of 4096 is too low for some workloads. The soft limit stays at
// 1024 for appcompat.
func initRlimit() error {
	rlimit := unix.Rlimit{
		Cur: 1024,
		Max: 1024 * 1024,
	}

	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rlimit); err != nil {
		return fmt.Errorf("setrlimit NOFILE: %w", err)
	}

	return nil
}

// kernelRelease returns the release string of the running kernel.
func kernelRelease() (string, error) {
	var utsname unix.Utsname

	if err := unix.Uname(&utsname); err != nil {
		return "", fmt.Errorf("uname: %w", err)
	}

	return unix.ByteSliceToString(utsname.Release[:]), nil
}

// randPoolInfo mirrors struct rand_pool_info consumed by the
// RNDADDENTROPY ioctl.
type randPoolInfo struct {
	entropyCount int32
	bufSize      int32
	buf          [entropyChunkMax]byte
}

// addEntropy submits chunk to the kernel RNG behind fd, crediting 8 bits
// of entropy per byte.
func addEntropy(fd int, chunk []byte) error {
	info := randPoolInfo{
		entropyCount: int32(len(chunk)) * 8,
		bufSize:      int32(len(chunk)),
	}
	copy(info.buf[:], chunk)

	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		uintptr(fd),
		uintptr(unix.RNDADDENTROPY),
		uintptr(unsafe.Pointer(&info)),
	)
	if errno != 0 {
		return fmt.Errorf("ioctl RNDADDENTROPY: %w", errno)
	}

	return nil
}
