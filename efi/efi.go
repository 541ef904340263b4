// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2019 Canonical Ltd
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

// Package efi provides the firmware capability surface the boot manager
// core depends on: filesystem access, image loading, the Shim security
// override, and devicetree staging. It does not bind to firmware directly;
// callers supply a Firmware implementation (see package efimock for tests
// and package hostfw for a non-UEFI reference implementation).
package efi

import (
	efilib "github.com/canonical/go-efilib"
)

// Handle is an opaque firmware handle, identifying a device or a protocol
// instance on one. It is comparable, matching the teacher's treatment of
// UEFI handles as opaque identity values.
type Handle uintptr

// GUID re-exports go-efilib's GUID type so that callers constructing
// device paths or configuration-table entries never need to import
// go-efilib directly for this one type.
type GUID = efilib.GUID

// DevicePath is a firmware-native tagged binary location, built by
// concatenating a filesystem's own device path with one or more file-path
// nodes (see Loader step 2 in SPEC_FULL.md §4.H).
type DevicePath = efilib.DevicePath

// ImageHandle identifies a firmware image that has been loaded via
// Firmware.LoadImage but not yet started. The caller starts it; this
// library only prepares it.
type ImageHandle uintptr

// ShimProtocol is a minimal capability surface over a located Shim
// image-verification protocol instance. The Security Override (efi/secureboot.go)
// holds one and calls it from SecurityOverrideGuard.Verify; it is not
// installed into the firmware's security handler table.
type ShimProtocol interface {
	// Verify asks Shim to validate the image at path against its MOK/vendor
	// trust chain, the same check Shim performs before directly executing a
	// second-stage loader.
	Verify(path DevicePath, data []byte) error
}

// SecurityHandlers is a snapshot of the SECURITY_ARCH and SECURITY2_ARCH
// protocol function pointers, opaque to this package beyond byte-identity
// comparison (used by tests to prove restore-on-release is exact, per
// SPEC_FULL.md §8 property 5).
type SecurityHandlers struct {
	Security  uintptr
	Security2 uintptr
}

// PxeOffer is the DHCP boot offer the active PXE boot handle received,
// reduced to the fields the PXE parser needs (SPEC_FULL.md §4.C).
type PxeOffer struct {
	ServerAddr string
	BootFile   string
}

// Firmware is the capability surface the core needs from its host. See
// SPEC_FULL.md §6 for the full rationale; this interface is deliberately
// narrow — every method corresponds to exactly one verb used by exactly one
// component (Filesystem Facade, Loader, Security Override, Devicetree
// Staging, or the BootMgr synthetic actions).
type Firmware interface {
	// FilesystemHandles returns every handle supporting the simple
	// filesystem protocol, in firmware enumeration order.
	FilesystemHandles() ([]Handle, error)

	// OpenFilesystem wraps h in a Filesystem facade, after confirming it
	// supports the simple filesystem protocol.
	OpenFilesystem(h Handle) (*Filesystem, error)

	// DevicePathForHandle returns the device path identifying the
	// filesystem's volume, used as the prefix for Loader step 2.
	DevicePathForHandle(h Handle) (DevicePath, error)

	// LoadImage loads (but does not start) the image at path.
	LoadImage(path DevicePath) (ImageHandle, error)

	// LoadImageFromBuffer loads (but does not start) the image whose
	// complete contents are already in memory, used by Loader step 7
	// (BootTftp) once the TFTP transfer has completed.
	LoadImageFromBuffer(data []byte) (ImageHandle, error)

	// UnloadImage releases a loaded image without starting it, used on the
	// loader's failure cleanup paths (SPEC_FULL.md §4.H Failure semantics).
	UnloadImage(h ImageHandle) error

	// SetLoadOptions sets the loaded-image protocol's LoadOptions. A nil
	// slice must leave LoadOptions null rather than an empty buffer.
	SetLoadOptions(h ImageHandle, options []uint16) error

	// ShimProtocol locates the Shim image-verification protocol on the
	// current boot handle. ok is false if Shim is not present (non-fatal).
	ShimProtocol() (proto ShimProtocol, ok bool, err error)

	// SecurityArchHandlers reads the current SECURITY_ARCH/SECURITY2_ARCH
	// function pointers.
	SecurityArchHandlers() (SecurityHandlers, error)

	// SetSecurityArchHandlers installs new SECURITY_ARCH/SECURITY2_ARCH
	// function pointers, or restores saved ones.
	SetSecurityArchHandlers(SecurityHandlers) error

	// InstallConfigTable installs data into the EFI configuration table
	// under guid, replacing any existing entry under that GUID.
	InstallConfigTable(guid GUID, data []byte) error

	// UninstallConfigTable removes the configuration table entry under
	// guid, if present.
	UninstallConfigTable(guid GUID) error

	// PxeOffer returns the active boot handle's DHCP boot offer, if the PXE
	// base-code protocol is present and has received one.
	PxeOffer() (offer *PxeOffer, ok bool, err error)

	// TftpDownload retrieves filename from serverAddr via TFTP, for
	// Loader step 7 (BootTftp).
	TftpDownload(serverAddr, filename string) ([]byte, error)

	// Reboot, Shutdown, and ResetToFirmwareUI call the firmware's reset
	// services directly; they do not return on success.
	Reboot() error
	Shutdown() error
	ResetToFirmwareUI() error
}
