// SPDX-FileCopyrightText: 2026 The guestinit authors
//
// SPDX-License-Identifier: MIT

package sysinit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightvm/guestinit/sysinit"
)

func TestResolveConfig(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expected    sysinit.BootPlan
		expectedErr error
	}{
		{
			name: "no arguments arms debug shell",
			args: []string{"init"},
			expected: sysinit.BootPlan{
				DebugShell: "/bin/sh",
				Command: []string{
					"/bin/gcs",
					"-loglevel", "debug",
					"-logfile=/run/gcs/gcs.log",
				},
			},
		},
		{
			name: "workload only",
			args: []string{"init", "/bin/workload", "-x", "arg"},
			expected: sysinit.BootPlan{
				Command: []string{"/bin/workload", "-x", "arg"},
			},
		},
		{
			name: "debug shell override",
			args: []string{"init", "-d", "/bin/bash", "/bin/workload"},
			expected: sysinit.BootPlan{
				DebugShell: "/bin/bash",
				Command:    []string{"/bin/workload"},
			},
		},
		{
			name: "entropy port",
			args: []string{"init", "-e", "2056", "/bin/workload"},
			expected: sysinit.BootPlan{
				EntropyPort: 2056,
				Command:     []string{"/bin/workload"},
			},
		},
		{
			name: "overlay",
			args: []string{"init", "-w", "/bin/workload"},
			expected: sysinit.BootPlan{
				Overlay: true,
				Command: []string{"/bin/workload"},
			},
		},
		{
			name: "all options",
			args: []string{
				"init",
				"-d", "/bin/sh",
				"-e", "1",
				"-w",
				"/bin/workload", "-flag-for-workload",
			},
			expected: sysinit.BootPlan{
				EntropyPort: 1,
				Overlay:     true,
				DebugShell:  "/bin/sh",
				Command:     []string{"/bin/workload", "-flag-for-workload"},
			},
		},
		{
			name:        "entropy port not a number",
			args:        []string{"init", "-e", "x", "/bin/workload"},
			expectedErr: sysinit.ErrUsage,
		},
		{
			name:        "entropy port zero",
			args:        []string{"init", "-e", "0", "/bin/workload"},
			expectedErr: sysinit.ErrUsage,
		},
		{
			name:        "entropy port negative",
			args:        []string{"init", "-e", "-1", "/bin/workload"},
			expectedErr: sysinit.ErrUsage,
		},
		{
			name:        "unknown option",
			args:        []string{"init", "-z", "/bin/workload"},
			expectedErr: sysinit.ErrUsage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := sysinit.ResolveConfig(tt.args)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestResolveConfigEmptyCommand(t *testing.T) {
	// An empty remaining command vector is passed through unguarded. The
	// failure surfaces at spawn time only.
	plan, err := sysinit.ResolveConfig([]string{"init", "-w"})

	require.NoError(t, err)
	assert.True(t, plan.Overlay)
	assert.Empty(t, plan.Command)
}
