// SPDX-FileCopyrightText: 2026 The guestinit authors
//
// SPDX-License-Identifier: MIT

// Package sysinit implements the boot sequence and process supervision of
// the first userspace process of a minimal VM guest.
//
// The sequence is strictly ordered: resolve the boot plan, raise resource
// limits, mount devtmpfs, apply the fixed filesystem operation tables,
// mount the enabled cgroup subsystems, bring up the loopback interface,
// optionally inject host entropy and load kernel modules, start auxiliary
// services and finally spawn and supervise the primary workload. Each step
// assumes every prior step succeeded; fatal failures abort the boot.
package sysinit
