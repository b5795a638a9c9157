// SPDX-FileCopyrightText: 2026 The guestinit authors
//
// SPDX-License-Identifier: MIT

package sysinit

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// defaultPathEnv is the entire environment children receive.
const defaultPathEnv = "PATH=/sbin:/usr/sbin:/bin:/usr/bin"

// HoldSignals subscribes init to asynchronous termination signals so that
// none of them can kill PID 1. The channel is intentionally never drained;
// further deliveries are dropped. Children exec with default dispositions
// and a clear signal mask, so they are not affected.
func HoldSignals() {
	signal.Notify(
		make(chan os.Signal, 1),
		unix.SIGHUP,
		unix.SIGINT,
		unix.SIGQUIT,
		unix.SIGTERM,
		unix.SIGUSR1,
		unix.SIGUSR2,
	)
}

// Spawn starts the given argument vector in a new session and process
// group, decoupled from init's own. The environment is replaced wholesale
// with a fixed PATH and the program is resolved against it. The child is
// not waited on here; every descendant is reaped by [ReapUntil].
func Spawn(argv []string) (int, error) {
	var name string
	if len(argv) > 0 {
		name = argv[0]
	}

	path, err := lookPath(name)
	if err != nil {
		return 0, fmt.Errorf("spawn %s: %w", name, err)
	}

	cmd := exec.Command(path)
	cmd.Args = argv
	cmd.Env = []string{defaultPathEnv}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("spawn %s: %w", name, err)
	}

	return cmd.Process.Pid, nil
}

// lookPath resolves name against the fixed child PATH instead of the
// caller's environment.
func lookPath(name string) (string, error) {
	if strings.Contains(name, "/") {
		return name, nil
	}

	dirs := strings.TrimPrefix(defaultPathEnv, "PATH=")

	for _, dir := range strings.Split(dirs, ":") {
		path := filepath.Join(dir, name)

		info, err := os.Stat(path)
		if err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
			return path, nil
		}
	}

	return "", fmt.Errorf("%s: %w", name, exec.ErrNotFound)
}

// waitFunc blocks until any child changed state; swapped in tests.
type waitFunc func() (pid int, status unix.WaitStatus, err error)

func waitAny() (int, unix.WaitStatus, error) {
	var status unix.WaitStatus

	for {
		pid, err := unix.Wait4(-1, &status, 0, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}

		return pid, status, err
	}
}

// ReapUntil reaps children until the tracked primary pid terminates and
// returns the exit code to surface for it: the child's exit status, or 128
// plus the signal number if it was killed by a signal. Terminations of all
// other descendants are consumed silently.
func ReapUntil(primary int) (int, error) {
	return reapUntil(primary, waitAny, os.Stderr)
}

func reapUntil(primary int, wait waitFunc, errOut io.Writer) (int, error) {
	for {
		pid, status, err := wait()
		if err != nil {
			return 0, fmt.Errorf("wait: %w", err)
		}

		if pid != primary {
			continue
		}

		if status.Exited() {
			exitCode := status.ExitStatus()
			if exitCode != 0 {
				fmt.Fprintln(errOut, "child exited with error")
			}

			return exitCode, nil
		}

		fmt.Fprintf(errOut, "child exited by signal: %s\n", status.Signal())

		return 128 + int(status.Signal()), nil
	}
}
