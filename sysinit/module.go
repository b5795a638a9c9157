// SPDX-FileCopyrightText: 2026 The guestinit authors
//
// SPDX-License-Identifier: MIT

package sysinit

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// modulesBase holds the per-release kernel module trees.
const modulesBase = "/lib/modules"

// ModuleFile is a kernel module file discovered in the modules directory.
type ModuleFile struct {
	Path       string
	Compressed bool
}

// ModulesDir returns the module directory of the running kernel.
func ModulesDir() (string, error) {
	release, err := kernelRelease()
	if err != nil {
		return "", err
	}

	return filepath.Join(modulesBase, release), nil
}

// parseModuleFile reports whether name is a recognized module file, plain
// or compressed.
func parseModuleFile(path string) (ModuleFile, bool) {
	if strings.HasSuffix(path, ".ko") {
		return ModuleFile{Path: path}, true
	}

	for _, suffix := range []string{".ko.gz", ".ko.xz", ".ko.zst"} {
		if strings.HasSuffix(path, suffix) {
			return ModuleFile{Path: path, Compressed: true}, true
		}
	}

	return ModuleFile{}, false
}

// moduleFiles returns an iterator over the module files under root,
// produced lazily while the directory tree is walked. A walk error is
// yielded with a zero [ModuleFile] and terminates the sequence.
func moduleFiles(root string) iter.Seq2[ModuleFile, error] {
	return func(yield func(ModuleFile, error) bool) {
		walkFunc := func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				yield(ModuleFile{}, err)
				return filepath.SkipAll
			}

			if !entry.Type().IsRegular() {
				return nil
			}

			file, ok := parseModuleFile(path)
			if !ok {
				return nil
			}

			if !yield(file, nil) {
				return filepath.SkipAll
			}

			return nil
		}

		_ = filepath.WalkDir(root, walkFunc)
	}
}

// moduleContext holds the resources shared by all insertions of a single
// walk. It is created lazily on the first candidate and released after the
// walk.
type moduleContext struct {
	buf bytes.Buffer
}

func (c *moduleContext) release() {
	c.buf.Reset()
}

// Loader inserts the kernel modules found in a modules directory. The zero
// value is ready to use.
type Loader struct {
	// insert replaces the insertion step in tests.
	insert func(ctx *moduleContext, file ModuleFile) error
}

// LoadAll walks dir and inserts every recognized module file.
//
// A failed insertion is logged and skipped: not every module on an image
// is insertable at boot, hardware-dependent ones in particular, and there
// is no denylist. A missing directory or a walk failure is logged as well,
// since some images ship no modules at all.
func (l *Loader) LoadAll(dir string) {
	insert := l.insert
	if insert == nil {
		insert = insertModule
	}

	var ctx *moduleContext

	defer func() {
		if ctx != nil {
			ctx.release()
		}
	}()

	for file, err := range moduleFiles(dir) {
		if err != nil {
			logrus.Warnf("walk modules: %v", err)
			return
		}

		if ctx == nil {
			ctx = new(moduleContext)
		}

		if err := insert(ctx, file); err != nil {
			logrus.Warnf("load module %s: %v", file.Path, err)
			continue
		}

		logrus.Infof("loaded module %s", file.Path)
	}
}

// insertModule loads one kernel module. finit_module(2) is tried first; on
// kernels without it, or without in-kernel decompression, the module is
// read and handed to init_module(2) instead.
func insertModule(ctx *moduleContext, file ModuleFile) error {
	module, err := os.Open(file.Path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer module.Close()

	var flags int
	if file.Compressed {
		flags |= unix.MODULE_INIT_COMPRESSED_FILE
	}

	err = unix.FinitModule(int(module.Fd()), "", flags)
	if err == nil {
		return nil
	}

	if !errors.Is(err, unix.EOPNOTSUPP) {
		return fmt.Errorf("finit_module: %w", err)
	}

	return ctx.initModule(module, file)
}

func (c *moduleContext) initModule(module *os.File, file ModuleFile) error {
	reader, err := moduleReader(module, file)
	if err != nil {
		return err
	}

	c.buf.Reset()

	if _, err := c.buf.ReadFrom(reader); err != nil {
		return fmt.Errorf("read module: %w", err)
	}

	if err := unix.InitModule(c.buf.Bytes(), ""); err != nil {
		return fmt.Errorf("init_module: %w", err)
	}

	return nil
}

// moduleReader decompresses the module if needed. Only gzip can be handled
// here; xz and zstd modules need finit_module's in-kernel decompression.
func moduleReader(module io.Reader, file ModuleFile) (io.Reader, error) {
	if !file.Compressed {
		return module, nil
	}

	if !strings.HasSuffix(file.Path, ".ko.gz") {
		return nil, fmt.Errorf("decompress %s: %w", file.Path, errors.ErrUnsupported)
	}

	reader, err := gzip.NewReader(module)
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}

	return reader, nil
}
