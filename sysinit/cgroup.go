// SPDX-FileCopyrightText: 2026 The guestinit authors
//
// SPDX-License-Identifier: MIT

package sysinit

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	// cgroupRegistry is the kernel registry of cgroup subsystems.
	cgroupRegistry = "/proc/cgroups"

	// cgroupBase is where per-subsystem hierarchies are mounted. A tmpfs
	// placeholder is mounted there by the base operation table.
	cgroupBase = "/sys/fs/cgroup"
)

// Subsystem is one record of the kernel cgroup registry.
type Subsystem struct {
	Name      string
	Hierarchy int
	NumGroups int
	Enabled   bool
}

// MountCgroups mounts a cgroup hierarchy under the cgroup base for every
// enabled subsystem in the kernel registry.
func MountCgroups() error {
	registry, err := os.Open(cgroupRegistry)
	if err != nil {
		return fmt.Errorf("open %s: %w", cgroupRegistry, err)
	}
	defer registry.Close()

	subsystems, err := parseSubsystems(registry)
	if err != nil {
		return fmt.Errorf("parse %s: %w", cgroupRegistry, err)
	}

	return mountSubsystems(subsystems, unix.Mkdir, unix.Mount)
}

// parseSubsystems reads cgroup registry records. The header line is
// discarded; every other line must have exactly four whitespace-separated
// fields: name, hierarchy id, group count and enabled flag.
func parseSubsystems(registry io.Reader) ([]Subsystem, error) {
	var subsystems []Subsystem

	scanner := bufio.NewScanner(registry)

	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		subsystem, err := parseSubsystem(line)
		if err != nil {
			return nil, err
		}

		subsystems = append(subsystems, subsystem)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	return subsystems, nil
}

func parseSubsystem(line string) (Subsystem, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return Subsystem{}, fmt.Errorf("record %q: %w", line, unix.EINVAL)
	}

	numbers := make([]int, 3)

	for idx, field := range fields[1:] {
		number, err := strconv.Atoi(field)
		if err != nil {
			return Subsystem{}, fmt.Errorf("record %q: %w", line, unix.EINVAL)
		}

		numbers[idx] = number
	}

	return Subsystem{
		Name:      fields[0],
		Hierarchy: numbers[0],
		NumGroups: numbers[1],
		Enabled:   numbers[2] != 0,
	}, nil
}

func mountSubsystems(
	subsystems []Subsystem,
	mkdir func(path string, mode uint32) error,
	mount func(source, target, fstype string, flags uintptr, data string) error,
) error {
	for _, subsystem := range subsystems {
		if !subsystem.Enabled {
			continue
		}

		path := filepath.Join(cgroupBase, subsystem.Name)

		if err := mkdir(path, defaultDirMode); err != nil {
			return fmt.Errorf("mkdir %s: %w", path, err)
		}

		err := mount(
			subsystem.Name,
			path,
			"cgroup",
			unix.MS_NODEV|unix.MS_NOSUID|unix.MS_NOEXEC,
			subsystem.Name,
		)
		if err != nil {
			return fmt.Errorf("mount %s: %w", path, err)
		}
	}

	return nil
}
