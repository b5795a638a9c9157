// SPDX-FileCopyrightText: 2026 The guestinit authors
//
// SPDX-License-Identifier: MIT

package sysinit

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader yields one configured chunk per Read call, then EOF.
type chunkReader struct {
	chunks [][]byte
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}

		return 0, io.EOF
	}

	chunk := r.chunks[0]
	r.chunks = r.chunks[1:]

	return copy(p, chunk), nil
}

func TestPumpEntropy(t *testing.T) {
	// One credit submission per nonempty chunk; the zero-length read ends
	// the pump without a further submission.
	src := &chunkReader{
		chunks: [][]byte{
			bytes.Repeat([]byte{0xaa}, 4096),
			bytes.Repeat([]byte{0xbb}, 4096),
			{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
	}

	var sizes []int

	credit := func(chunk []byte) error {
		sizes = append(sizes, len(chunk))
		return nil
	}

	err := pumpEntropy(src, credit)

	require.NoError(t, err)
	assert.Equal(t, []int{4096, 4096, 10}, sizes)
}

func TestPumpEntropyReadError(t *testing.T) {
	src := &chunkReader{
		chunks: [][]byte{{0xaa}},
		err:    assert.AnError,
	}

	var submissions int

	credit := func([]byte) error {
		submissions++
		return nil
	}

	err := pumpEntropy(src, credit)

	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, submissions)
}

func TestPumpEntropyCreditError(t *testing.T) {
	src := &chunkReader{
		chunks: [][]byte{{0xaa}, {0xbb}},
	}

	credit := func([]byte) error { return assert.AnError }

	err := pumpEntropy(src, credit)

	require.ErrorIs(t, err, assert.AnError)
}
