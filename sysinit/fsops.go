// SPDX-FileCopyrightText: 2026 The guestinit authors
//
// SPDX-License-Identifier: MIT

package sysinit

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const defaultDirMode = 0o755

type opKind int

const (
	opMount opKind = iota
	opMkdir
	opMknod
	opSymlink
)

// Op is a single boot-time filesystem operation, a tagged variant of
// mount, mkdir, mknod and symlink. Op values are built once and never
// mutated; their order in a table is significant, since later operations
// assume earlier targets exist.
type Op struct {
	kind opKind

	// mount
	source, target, fstype string
	flags                  uintptr
	data                   string

	// mkdir, mknod
	path         string
	mode         uint32
	major, minor uint32

	// symlink
	link, linkTarget string
}

// MountOp mounts fstype at target.
func MountOp(source, target, fstype string, flags uintptr, data string) Op {
	return Op{
		kind:   opMount,
		source: source,
		target: target,
		fstype: fstype,
		flags:  flags,
		data:   data,
	}
}

// MkdirOp creates a single directory.
func MkdirOp(path string, mode uint32) Op {
	return Op{kind: opMkdir, path: path, mode: mode}
}

// MknodOp creates a device node.
func MknodOp(path string, mode uint32, major, minor uint32) Op {
	return Op{kind: opMknod, path: path, mode: mode, major: major, minor: minor}
}

// SymlinkOp creates link pointing at target.
func SymlinkOp(link, target string) Op {
	return Op{kind: opSymlink, link: link, linkTarget: target}
}

// opSyscalls is the syscall surface the dispatcher runs on; swapped in
// tests.
type opSyscalls struct {
	mount   func(source, target, fstype string, flags uintptr, data string) error
	mkdir   func(path string, mode uint32) error
	mknod   func(path string, mode uint32, dev uint64) error
	symlink func(target, link string) error
}

func realOpSyscalls() opSyscalls {
	return opSyscalls{
		mount:   unix.Mount,
		mkdir:   unix.Mkdir,
		mknod: func(path string, mode uint32, dev uint64) error {
			return unix.Mknod(path, mode, int(dev))
		},
		symlink: unix.Symlink,
	}
}

// Apply runs the operations in order. A mount failure is always an error.
// mkdir, mknod and symlink tolerate an existing target with a warning.
func Apply(ops []Op) error {
	return applyOps(ops, realOpSyscalls())
}

func applyOps(ops []Op, sys opSyscalls) error {
	for _, op := range ops {
		if err := applyOp(op, sys); err != nil {
			return err
		}
	}

	return nil
}

func applyOp(op Op, sys opSyscalls) error {
	switch op.kind {
	case opMount:
		if err := sys.mount(op.source, op.target, op.fstype, op.flags, op.data); err != nil {
			return fmt.Errorf("mount %s: %w", op.target, err)
		}
	case opMkdir:
		if err := sys.mkdir(op.path, op.mode); err != nil {
			if !errors.Is(err, unix.EEXIST) {
				return fmt.Errorf("mkdir %s: %w", op.path, err)
			}

			logrus.Warnf("mkdir %s: %v", op.path, err)
		}
	case opMknod:
		if err := sys.mknod(op.path, op.mode, unix.Mkdev(op.major, op.minor)); err != nil {
			if !errors.Is(err, unix.EEXIST) {
				return fmt.Errorf("mknod %s: %w", op.path, err)
			}

			logrus.Warnf("mknod %s: %v", op.path, err)
		}
	case opSymlink:
		if err := sys.symlink(op.linkTarget, op.link); err != nil {
			if !errors.Is(err, unix.EEXIST) {
				return fmt.Errorf("symlink %s: %w", op.link, err)
			}

			logrus.Warnf("symlink %s: %v", op.link, err)
		}
	}

	return nil
}

// MountDev mounts devtmpfs on /dev. The kernel mounts it on its own with
// devtmpfs.mount=1 or CONFIG_DEVTMPFS_MOUNT, which reports EBUSY and is
// not an error.
func MountDev() error {
	return mountDev(unix.Mount)
}

func mountDev(mount func(source, target, fstype string, flags uintptr, data string) error) error {
	err := mount("dev", "/dev", "devtmpfs", unix.MS_NOSUID|unix.MS_NOEXEC, "")
	if err != nil {
		if !errors.Is(err, unix.EBUSY) {
			return fmt.Errorf("mount /dev: %w", err)
		}

		logrus.Warnf("mount /dev: %v", err)
	}

	return nil
}

// baseOps prepares the standard virtual filesystems and device symlinks.
// It expects /dev to be mounted already.
func baseOps() []Op {
	return []Op{
		MountOp("proc", "/proc", "proc", unix.MS_NODEV|unix.MS_NOSUID|unix.MS_NOEXEC, ""),

		SymlinkOp("/dev/fd", "/proc/self/fd"),
		SymlinkOp("/dev/stdin", "/proc/self/fd/0"),
		SymlinkOp("/dev/stdout", "/proc/self/fd/1"),
		SymlinkOp("/dev/stderr", "/proc/self/fd/2"),

		MountOp("tmpfs", "/run", "tmpfs", unix.MS_NODEV|unix.MS_NOSUID|unix.MS_NOEXEC, "mode=0755"),
		MountOp("tmpfs", "/tmp", "tmpfs", unix.MS_NODEV|unix.MS_NOSUID|unix.MS_NOEXEC, ""),

		MkdirOp("/dev/shm", defaultDirMode),
		MountOp("shm", "/dev/shm", "tmpfs", unix.MS_NODEV|unix.MS_NOSUID|unix.MS_NOEXEC, ""),
		MkdirOp("/dev/pts", defaultDirMode),
		MountOp("devpts", "/dev/pts", "devpts", unix.MS_NOSUID|unix.MS_NOEXEC, ""),

		MountOp("sysfs", "/sys", "sysfs", unix.MS_NODEV|unix.MS_NOSUID|unix.MS_NOEXEC, ""),
		MountOp("cgroup_root", cgroupBase, "tmpfs", unix.MS_NODEV|unix.MS_NOSUID|unix.MS_NOEXEC, "mode=0755"),
	}
}

// overlayDir backs the writable overlay layers. It lives under the already
// tmpfs-backed /run, but on a separate, size-limited tmpfs so the overlays
// cannot contest the rest of /run.
const overlayDir = "/run/over"

// overlayOps builds writable overlays over the read-only /etc and /var.
// The rootfs is mounted read-only, but workloads expect to write to both.
func overlayOps() []Op {
	ops := []Op{
		MkdirOp(overlayDir, defaultDirMode),
		MountOp("tmpfs", overlayDir, "tmpfs", unix.MS_NODEV|unix.MS_NOSUID|unix.MS_NOEXEC, "size=40%,mode=0755"),
	}

	ops = append(ops, overlayOpsFor("/etc", unix.MS_NODEV|unix.MS_NOSUID|unix.MS_NOEXEC)...)
	// /var must allow execs.
	ops = append(ops, overlayOpsFor("/var", unix.MS_NODEV|unix.MS_NOSUID)...)

	return ops
}

// overlayOpsFor builds the upper and work directories for lower and mounts
// an overlay over it, keeping the original directory as read-only lower
// layer.
func overlayOpsFor(lower string, flags uintptr) []Op {
	base := filepath.Join(overlayDir, filepath.Base(lower))
	upper := filepath.Join(base, "upper")
	work := filepath.Join(base, "work")

	data := fmt.Sprintf("lowerdir=%s,upperdir=%s,workdir=%s", lower, upper, work)

	return []Op{
		MkdirOp(base, defaultDirMode),
		MkdirOp(upper, defaultDirMode),
		MkdirOp(work, defaultDirMode),
		MountOp("overlay", lower, "overlay", flags, data),
	}
}
