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

// Package config holds the Config entity, its validated newtype fields, and
// the fluent Builder that is the only way to produce one. Grounded on
// original_source's config/types.rs and config/builder.rs; canonical-secboot
// has no direct equivalent (it has no firmware-facing entity model), so the
// Go idiom here is the teacher's error-wrapping and constructor-indirection
// conventions applied to a 1:1 translation of the Rust newtype/builder
// design.
package config

import (
	"fmt"
	"runtime"
	"strings"

	efi "github.com/some100/bootmgr-go/efi"
)

// machineIDLen is the fixed length of a BLS machine-id.
const machineIDLen = 32

// TypeError is returned by every newtype constructor in this file when the
// input does not satisfy the type's invariant.
type TypeError struct {
	Field string
	Value string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%q is not a valid %s", e.Value, e.Field)
}

// MachineID is a validated BLS machine-id: exactly 32 lowercase hex digits.
type MachineID string

// NewMachineID validates s and lowercases it.
func NewMachineID(s string) (MachineID, error) {
	if !checkMachineIDValid(s) {
		return "", &TypeError{Field: "machine id", Value: s}
	}
	return MachineID(strings.ToLower(s)), nil
}

func checkMachineIDValid(s string) bool {
	if len(s) != machineIDLen {
		return false
	}
	for _, r := range s {
		if !isHexDigit(r) {
			return false
		}
	}
	return true
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// SortKey is a validated sort key: lowercase alphanumerics plus `.-_`.
type SortKey string

// NewSortKey validates s.
func NewSortKey(s string) (SortKey, error) {
	if !checkSortKeyValid(s) {
		return "", &TypeError{Field: "sort key", Value: s}
	}
	return SortKey(s), nil
}

func checkSortKeyValid(s string) bool {
	for _, r := range s {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum && r != '.' && r != '_' && r != '-' {
			return false
		}
	}
	return true
}

// Architecture is a validated architecture tag: one of x64, ia32, aa64, arm.
type Architecture string

const (
	ArchX64  Architecture = "x64"
	ArchIA32 Architecture = "ia32"
	ArchAA64 Architecture = "aa64"
	ArchArm  Architecture = "arm"
)

// NewArchitecture validates s.
func NewArchitecture(s string) (Architecture, error) {
	switch Architecture(s) {
	case ArchX64, ArchIA32, ArchAA64, ArchArm:
		return Architecture(s), nil
	default:
		return "", &TypeError{Field: "architecture", Value: s}
	}
}

// DetectHostArchitecture maps runtime.GOARCH onto this tree's architecture
// tags: 386→ia32, amd64→x64, arm→arm, arm64→aa64. Architecture tags are
// exactly x64/ia32/aa64/arm per spec.md §3, diverging deliberately from the
// original source's x86/x64/arm/aa64 (see DESIGN.md).
func DetectHostArchitecture() Architecture {
	switch runtime.GOARCH {
	case "386":
		return ArchIA32
	case "amd64":
		return ArchX64
	case "arm":
		return ArchArm
	case "arm64":
		return ArchAA64
	default:
		return Architecture(runtime.GOARCH)
	}
}

// EfiPath is a validated, backslash-normalized absolute path to an
// executable within its filesystem.
type EfiPath string

// NewEfiPath normalizes path (forward slashes to backslashes) and validates
// it.
func NewEfiPath(path string) (EfiPath, error) {
	norm := efi.NormalizePath(path)
	if !efi.ValidPath(norm) {
		return "", &TypeError{Field: "efi path", Value: path}
	}
	return EfiPath(norm), nil
}

// DevicetreePath is a validated, backslash-normalized absolute path to a
// flattened devicetree blob.
type DevicetreePath string

// NewDevicetreePath normalizes path and validates it.
func NewDevicetreePath(path string) (DevicetreePath, error) {
	norm := efi.NormalizePath(path)
	if !efi.ValidPath(norm) {
		return "", &TypeError{Field: "devicetree path", Value: path}
	}
	return DevicetreePath(norm), nil
}

// FsHandle is a validated firmware handle known to support the simple
// filesystem protocol.
type FsHandle efi.Handle

// NewFsHandle validates that fw has a filesystem open at h before wrapping
// it, matching original source's FsHandle::new (which tests the
// SimpleFileSystem protocol before accepting the handle).
func NewFsHandle(fw efi.Firmware, h efi.Handle) (FsHandle, error) {
	if _, err := fw.OpenFilesystem(h); err != nil {
		return 0, &TypeError{Field: "filesystem handle", Value: fmt.Sprintf("%v", h)}
	}
	return FsHandle(h), nil
}
