// SPDX-FileCopyrightText: 2026 The guestinit authors
//
// SPDX-License-Identifier: MIT

package sysinit

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mdlayher/vsock"
)

const (
	// entropyDevice is the kernel RNG device accepting entropy credits.
	entropyDevice = "/dev/random"

	// entropyChunkMax bounds a single entropy submission.
	entropyChunkMax = 4096
)

// InjectEntropy streams random bytes from the host vsock port into the
// kernel RNG, crediting 8 bits per byte. It returns once the host closes
// the channel.
func InjectEntropy(port uint32) error {
	conn, err := vsock.Dial(vsock.Host, port, nil)
	if err != nil {
		return fmt.Errorf("entropy channel port %d: %w", port, err)
	}
	defer conn.Close()

	random, err := os.OpenFile(entropyDevice, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", entropyDevice, err)
	}
	defer random.Close()

	credit := func(chunk []byte) error {
		return addEntropy(int(random.Fd()), chunk)
	}

	return pumpEntropy(conn, credit)
}

// pumpEntropy reads chunks of up to entropyChunkMax bytes from src and
// submits every nonempty chunk atomically. A zero-length read ends the
// pump normally.
func pumpEntropy(src io.Reader, credit func(chunk []byte) error) error {
	buf := make([]byte, entropyChunkMax)

	for {
		n, err := src.Read(buf)
		if n > 0 {
			if err := credit(buf[:n]); err != nil {
				return fmt.Errorf("add entropy: %w", err)
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("read entropy: %w", err)
		}
	}
}
