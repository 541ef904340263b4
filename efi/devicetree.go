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

package efi

import (
	"encoding/binary"
	"errors"

	"golang.org/x/xerrors"
)

// fdtMagic is the big-endian magic value at the start of every flattened
// devicetree blob.
const fdtMagic uint32 = 0xd00dfeed

// fdtHeaderSize is the size of the fixed portion of the FDT header this
// package validates; it does not need to parse the rest of the structure
// block, only confirm the blob is self-consistent before staging it.
const fdtHeaderSize = 8

// DevicetreeError values are returned (wrapped) by devicetree staging
// operations.
var (
	ErrBadMagic         = errors.New("devicetree blob has an invalid magic value")
	ErrTruncatedHeader  = errors.New("devicetree blob is too short to contain a header")
	ErrArchMismatch     = errors.New("devicetree blob architecture does not match the host architecture")
	ErrInstallFailed    = errors.New("could not install devicetree blob into the configuration table")
	ErrGuardConsumed    = errors.New("the devicetree guard has already been released")
)

// validateFdtHeader checks the magic and reports the blob's declared total
// size, without validating anything past the fixed header — this package
// only needs to know the blob is not garbage before handing it to firmware.
func validateFdtHeader(blob []byte) (totalSize uint32, err error) {
	if len(blob) < fdtHeaderSize {
		return 0, ErrTruncatedHeader
	}
	magic := binary.BigEndian.Uint32(blob[0:4])
	if magic != fdtMagic {
		return 0, ErrBadMagic
	}
	totalSize = binary.BigEndian.Uint32(blob[4:8])
	if int(totalSize) > len(blob) {
		return 0, ErrTruncatedHeader
	}
	return totalSize, nil
}

// DevicetreeGuard owns one staged devicetree blob. Unlike the original
// source, which leaks the backing allocation forever once installed (the
// firmware keeps using it until the machine reboots, so freeing it was never
// attempted), this package requires the caller to call Release exactly once
// when the blob is no longer needed — see SPEC_FULL.md §4.G for why that
// correction is deliberate once this runs as an ordinary long-lived process
// rather than a single-shot UEFI application.
type DevicetreeGuard struct {
	fw        Firmware
	installed bool
	released  bool
}

// StageDevicetree validates blob's FDT header against arch and, if it
// matches, installs it into the firmware's configuration table. The
// returned guard must be released by the caller once the associated boot
// entry either fails to load or is replaced by another selection.
func StageDevicetree(fw Firmware, blob []byte, arch string) (*DevicetreeGuard, error) {
	if _, err := validateFdtHeader(blob); err != nil {
		return nil, xerrors.Errorf("invalid devicetree blob: %w", err)
	}
	if !archMatchesHost(arch) {
		return nil, ErrArchMismatch
	}
	if err := fw.InstallConfigTable(devicetreeTableGUID, blob); err != nil {
		return nil, xerrors.Errorf("cannot install devicetree blob: %w", &errWrap{ErrInstallFailed, err})
	}
	return &DevicetreeGuard{fw: fw, installed: true}, nil
}

// Release removes the devicetree blob from the firmware's configuration
// table. If the guard records that nothing was installed, Release does
// nothing else. Calling Release twice returns ErrGuardConsumed.
func (g *DevicetreeGuard) Release() error {
	if g.released {
		return ErrGuardConsumed
	}
	g.released = true
	if !g.installed {
		return nil
	}
	if err := g.fw.UninstallConfigTable(devicetreeTableGUID); err != nil {
		return xerrors.Errorf("cannot uninstall devicetree blob: %w", err)
	}
	return nil
}

// errWrap lets a sentinel and an underlying cause both satisfy errors.Is
// independently, matching the teacher's practice of wrapping a named
// category error around a lower-level one.
type errWrap struct {
	sentinel error
	cause    error
}

func (e *errWrap) Error() string { return e.sentinel.Error() + ": " + e.cause.Error() }
func (e *errWrap) Is(target error) bool { return target == e.sentinel }
func (e *errWrap) Unwrap() error { return e.cause }

// archMatchesHost reports whether arch (one of "x64", "ia32", "aa64", "arm")
// names the running host's architecture family, used to refuse installing a
// devicetree blob built for a different machine. An empty arch means the
// entry carried no explicit architecture tag — the common case for a BLS
// fragment with a bare `devicetree` line — and is treated as matching: the
// original source never rejects an untagged entry, it only ever refuses one
// that names a different architecture outright.
func archMatchesHost(arch string) bool {
	if arch == "" {
		return true
	}
	return arch == hostArchitectureTag()
}
