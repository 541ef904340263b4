// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2023 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package config

import (
	"errors"

	efi "github.com/some100/bootmgr-go/efi"
)

// Builder is a fluent constructor for Config, grounded on original source's
// ConfigBuilder (config/builder.rs). A setter whose validator rejects its
// argument leaves that field unset rather than aborting the chain, matching
// the Rust builder's log-and-drop behavior; unlike the Rust builder, every
// dropped value is also recorded so a caller such as the Config Editor can
// report exactly which field failed instead of only observing its absence.
type Builder struct {
	config Config
	errs   []error
}

// NewBuilder starts building a Config for the given filename/suffix pair.
func NewBuilder(filename, suffix string) *Builder {
	return &Builder{config: Config{Filename: filename, Suffix: suffix, Action: BootEfi}}
}

// FromConfig seeds a Builder with every field of an existing Config, the Go
// translation of the Rust `impl From<&Config> for ConfigBuilder`. Used by
// the Config Editor so editing never mutates the original Config.
func FromConfig(c Config) *Builder {
	b := NewBuilder(c.Filename, c.Suffix)
	b.config = c
	return b
}

func (b *Builder) Title(title string) *Builder {
	b.config.Title = title
	return b
}

func (b *Builder) Version(version string) *Builder {
	b.config.Version = version
	return b
}

func (b *Builder) MachineID(s string) *Builder {
	id, err := NewMachineID(s)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.config.MachineID = id
	return b
}

func (b *Builder) SortKey(s string) *Builder {
	sk, err := NewSortKey(s)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.config.SortKey = sk
	return b
}

func (b *Builder) Options(options string) *Builder {
	b.config.Options = options
	return b
}

func (b *Builder) DevicetreePath(path string) *Builder {
	dp, err := NewDevicetreePath(path)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.config.Devicetree = dp
	return b
}

func (b *Builder) Architecture(arch string) *Builder {
	a, err := NewArchitecture(arch)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.config.Arch = a
	return b
}

func (b *Builder) SetBad(bad bool) *Builder {
	b.config.Bad = bad
	return b
}

func (b *Builder) Action(action BootAction) *Builder {
	b.config.Action = action
	return b
}

// FsHandle validates h against fw before accepting it, matching original
// source's FsHandle::new test against the SimpleFileSystem protocol.
func (b *Builder) FsHandle(fw efi.Firmware, h efi.Handle) *Builder {
	fh, err := NewFsHandle(fw, h)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.config.FsHandle = fh
	b.config.HasHandle = true
	return b
}

func (b *Builder) Origin(origin Origin) *Builder {
	b.config.Origin = origin
	return b
}

func (b *Builder) EfiPath(path string) *Builder {
	p, err := NewEfiPath(path)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.config.EfiPath = p
	return b
}

// Errors returns every field-level error accumulated so far.
func (b *Builder) Errors() []error {
	return b.errs
}

// errMissingFilename etc are the §3 required-invariant failures Build can
// return; field-level validator failures (wrong charset, bad path) are
// reported separately via Errors and do not by themselves fail Build.
var (
	errMissingFilename = errors.New("config is missing a filename")
	errMissingEfiPath  = errors.New("config requires an efi path for this action")
	errSuffixMismatch  = errors.New("config filename does not end with its declared suffix")
)

// Build returns the finished Config. error is non-nil exactly when a
// required invariant from spec.md §3 is violated: empty filename, a missing
// efi_path for a non-synthetic BootEfi/BootTftp entry, or a filename/suffix
// mismatch. Accumulated field-validator errors (Errors()) do not by
// themselves cause Build to fail.
func (b *Builder) Build() (Config, error) {
	if b.config.Filename == "" {
		return Config{}, errMissingFilename
	}
	if b.config.Suffix != "" && len(b.config.Filename) >= len(b.config.Suffix) {
		tail := b.config.Filename[len(b.config.Filename)-len(b.config.Suffix):]
		if tail != b.config.Suffix {
			return Config{}, errSuffixMismatch
		}
	}
	switch b.config.Action {
	case BootEfi, BootTftp:
		if b.config.EfiPath == "" {
			return Config{}, errMissingEfiPath
		}
	}
	return b.config, nil
}
