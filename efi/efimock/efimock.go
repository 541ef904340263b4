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

// Package efimock provides an in-memory efi.Firmware implementation for
// tests, standing in for the real UEFI host the way the teacher's
// internal/efitest package stands in for real TPM/EFI variable access.
package efimock

import (
	"sort"
	"strings"

	efi "github.com/some100/bootmgr-go/efi"
)

// Volume is one in-memory filesystem volume: a flat map from normalized
// (backslash-separated) path to file content.
type Volume struct {
	Label string
	Files map[string][]byte
}

type volumeBackend struct {
	vol *Volume
}

func (b *volumeBackend) Exists(path string) bool {
	_, ok := b.vol.Files[path]
	if ok {
		return true
	}
	prefix := path + "\\"
	for name := range b.vol.Files {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (b *volumeBackend) Read(path string) ([]byte, error) {
	data, ok := b.vol.Files[path]
	if !ok {
		return nil, efi.ErrNotExist
	}
	if int64(len(data)) > efi.MaxReadSize {
		return nil, efi.ErrReadTooLarge
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (b *volumeBackend) ReadDir(path string) ([]efi.DirEntry, error) {
	prefix := path
	if prefix != "" && !strings.HasSuffix(prefix, "\\") {
		prefix += "\\"
	}
	seen := map[string]efi.DirEntry{}
	for name, data := range b.vol.Files {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		if rest == "" {
			continue
		}
		if idx := strings.Index(rest, "\\"); idx >= 0 {
			seen[rest[:idx]] = efi.DirEntry{Name: rest[:idx], IsDir: true}
			continue
		}
		seen[rest] = efi.DirEntry{Name: rest, Size: int64(len(data))}
	}
	if len(seen) == 0 {
		return nil, efi.ErrNotExist
	}
	entries := make([]efi.DirEntry, 0, len(seen))
	for _, e := range seen {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (b *volumeBackend) VolumeLabel() (string, error) {
	return b.vol.Label, nil
}

type loadedImage struct {
	path    efi.DevicePath
	options []uint16
}

// Firmware is a configurable in-memory stand-in for efi.Firmware.
type Firmware struct {
	volumes      []*Volume
	handles      []efi.Handle
	byHandle     map[efi.Handle]*Volume
	shimPresent  bool
	shimVerifier func(path efi.DevicePath, data []byte) error
	security     efi.SecurityHandlers
	configTables map[efi.GUID][]byte
	pxeOffer     *efi.PxeOffer
	tftpFiles    map[string][]byte
	images       map[efi.ImageHandle]*loadedImage
	nextImage    uint64

	Rebooted           bool
	ShutDown           bool
	ResetToFirmwareCalled bool
}

// New returns a Firmware with no volumes and no Shim protocol present.
func New() *Firmware {
	return &Firmware{
		byHandle:     map[efi.Handle]*Volume{},
		configTables: map[efi.GUID][]byte{},
		tftpFiles:    map[string][]byte{},
		images:       map[efi.ImageHandle]*loadedImage{},
	}
}

// AddVolume registers vol as the next enumerated filesystem handle, and
// returns the handle it was assigned.
func (fw *Firmware) AddVolume(vol *Volume) efi.Handle {
	h := efi.Handle(uintptr(len(fw.handles) + 1))
	fw.handles = append(fw.handles, h)
	fw.byHandle[h] = vol
	return h
}

// SetShimPresent controls whether ShimProtocol reports Shim as present, and
// what verifier function it uses when it is.
func (fw *Firmware) SetShimPresent(present bool, verify func(efi.DevicePath, []byte) error) {
	fw.shimPresent = present
	fw.shimVerifier = verify
}

// SetPxeOffer controls what PxeOffer returns.
func (fw *Firmware) SetPxeOffer(offer *efi.PxeOffer) { fw.pxeOffer = offer }

// AddTftpFile registers content to be served by TftpDownload for the given
// server address and filename pair.
func (fw *Firmware) AddTftpFile(serverAddr, filename string, content []byte) {
	fw.tftpFiles[serverAddr+"/"+filename] = content
}

// ConfigTable returns the raw bytes installed under guid, if any.
func (fw *Firmware) ConfigTable(guid efi.GUID) ([]byte, bool) {
	data, ok := fw.configTables[guid]
	return data, ok
}

func (fw *Firmware) FilesystemHandles() ([]efi.Handle, error) {
	out := make([]efi.Handle, len(fw.handles))
	copy(out, fw.handles)
	return out, nil
}

func (fw *Firmware) OpenFilesystem(h efi.Handle) (*efi.Filesystem, error) {
	vol, ok := fw.byHandle[h]
	if !ok {
		return nil, efi.ErrNotExist
	}
	return efi.NewFilesystem(h, &volumeBackend{vol: vol}), nil
}

func (fw *Firmware) DevicePathForHandle(h efi.Handle) (efi.DevicePath, error) {
	if _, ok := fw.byHandle[h]; !ok {
		return efi.DevicePath{}, efi.ErrNotExist
	}
	return efi.DevicePath{}, nil
}

func (fw *Firmware) LoadImage(path efi.DevicePath) (efi.ImageHandle, error) {
	fw.nextImage++
	h := efi.ImageHandle(uintptr(fw.nextImage))
	fw.images[h] = &loadedImage{path: path}
	return h, nil
}

func (fw *Firmware) LoadImageFromBuffer(data []byte) (efi.ImageHandle, error) {
	fw.nextImage++
	h := efi.ImageHandle(uintptr(fw.nextImage))
	fw.images[h] = &loadedImage{}
	return h, nil
}

func (fw *Firmware) UnloadImage(h efi.ImageHandle) error {
	delete(fw.images, h)
	return nil
}

func (fw *Firmware) SetLoadOptions(h efi.ImageHandle, options []uint16) error {
	img, ok := fw.images[h]
	if !ok {
		return efi.ErrNotExist
	}
	img.options = options
	return nil
}

// LoadOptions returns the options most recently set for h, or nil if none
// were set (distinguishing "never set"/"set to nil" from "set to empty" is
// the whole point of this accessor for tests).
func (fw *Firmware) LoadOptions(h efi.ImageHandle) []uint16 {
	img, ok := fw.images[h]
	if !ok {
		return nil
	}
	return img.options
}

type shimProto struct {
	verify func(efi.DevicePath, []byte) error
}

func (s *shimProto) Verify(path efi.DevicePath, data []byte) error {
	if s.verify == nil {
		return nil
	}
	return s.verify(path, data)
}

func (fw *Firmware) ShimProtocol() (efi.ShimProtocol, bool, error) {
	if !fw.shimPresent {
		return nil, false, nil
	}
	return &shimProto{verify: fw.shimVerifier}, true, nil
}

func (fw *Firmware) SecurityArchHandlers() (efi.SecurityHandlers, error) {
	return fw.security, nil
}

func (fw *Firmware) SetSecurityArchHandlers(h efi.SecurityHandlers) error {
	fw.security = h
	return nil
}

func (fw *Firmware) InstallConfigTable(guid efi.GUID, data []byte) error {
	fw.configTables[guid] = data
	return nil
}

func (fw *Firmware) UninstallConfigTable(guid efi.GUID) error {
	delete(fw.configTables, guid)
	return nil
}

func (fw *Firmware) PxeOffer() (*efi.PxeOffer, bool, error) {
	if fw.pxeOffer == nil {
		return nil, false, nil
	}
	return fw.pxeOffer, true, nil
}

func (fw *Firmware) TftpDownload(serverAddr, filename string) ([]byte, error) {
	data, ok := fw.tftpFiles[serverAddr+"/"+filename]
	if !ok {
		return nil, efi.ErrNotExist
	}
	return data, nil
}

func (fw *Firmware) Reboot() error             { fw.Rebooted = true; return nil }
func (fw *Firmware) Shutdown() error           { fw.ShutDown = true; return nil }
func (fw *Firmware) ResetToFirmwareUI() error  { fw.ResetToFirmwareCalled = true; return nil }
