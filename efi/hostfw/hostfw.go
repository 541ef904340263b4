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

// Package hostfw is a reference efi.Firmware implementation for running
// this tree outside UEFI boot services, against a booted Linux host: ESP
// mount points on disk instead of SimpleFileSystem handles, efivarfs
// instead of runtime variable services, and raw syscalls for the reset
// services. It exists so the core packages can be exercised (by cmd/bootmgr
// or by integration tests) without a UEFI shell, the same role the teacher's
// internal/efi/default_env.go plays for canonical-secboot.
package hostfw

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	efi "github.com/some100/bootmgr-go/efi"
	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"

	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/insomniacslk/dhcp/dhcpv4/client4"
	"github.com/pin/tftp/v3"
)

// efivarfsPath is where the kernel exposes UEFI runtime variables on a
// booted Linux host.
const efivarfsPath = "/sys/firmware/efi/efivars"

type dirBackend struct {
	root string
}

func (b *dirBackend) resolve(path string) string {
	clean := filepath.FromSlash(strings.ReplaceAll(path, "\\", "/"))
	return filepath.Join(b.root, clean)
}

func (b *dirBackend) Exists(path string) bool {
	_, err := os.Stat(b.resolve(path))
	return err == nil
}

func (b *dirBackend) Read(path string) ([]byte, error) {
	full := b.resolve(path)
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, efi.ErrNotExist
		}
		if os.IsPermission(err) {
			return nil, efi.ErrPermissionDenied
		}
		return nil, err
	}
	if info.Size() > efi.MaxReadSize {
		return nil, efi.ErrReadTooLarge
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, efi.ErrNotExist
		}
		if os.IsPermission(err) {
			return nil, efi.ErrPermissionDenied
		}
		return nil, err
	}
	return data, nil
}

func (b *dirBackend) ReadDir(path string) ([]efi.DirEntry, error) {
	entries, err := os.ReadDir(b.resolve(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, efi.ErrNotExist
		}
		if os.IsPermission(err) {
			return nil, efi.ErrPermissionDenied
		}
		return nil, err
	}
	out := make([]efi.DirEntry, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		size := int64(0)
		if err == nil {
			size = info.Size()
		}
		out = append(out, efi.DirEntry{Name: e.Name(), IsDir: e.IsDir(), Size: size})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *dirBackend) VolumeLabel() (string, error) {
	return filepath.Base(b.root), nil
}

type loadedImage struct {
	path    efi.DevicePath
	options []uint16
}

// Firmware is a reference efi.Firmware backed by real filesystem mounts and
// (where the host supports it) real efivarfs/syscall access. Zero value is
// not usable; construct with New.
type Firmware struct {
	mu sync.Mutex

	mounts    []string
	byHandle  map[efi.Handle]string
	nextImage uint64
	images    map[efi.ImageHandle]*loadedImage

	security efi.SecurityHandlers

	configTables map[efi.GUID][]byte

	// PxeOfferFunc, when set, supplies the active PXE boot offer — on a
	// real host this information comes from the firmware's own PXE base
	// code protocol, which does not exist once booted into an OS; callers
	// wire this to wherever their network-boot environment records the
	// DHCP offer it already received (e.g. an iPXE variable file).
	PxeOfferFunc func() (*efi.PxeOffer, bool, error)
}

// New returns a Firmware with no filesystem mounts registered.
func New() *Firmware {
	return &Firmware{
		byHandle:     map[efi.Handle]string{},
		images:       map[efi.ImageHandle]*loadedImage{},
		configTables: map[efi.GUID][]byte{},
	}
}

// AddMount registers dir (an already-mounted ESP or XBOOTLDR partition) as
// the next enumerated filesystem handle.
func (fw *Firmware) AddMount(dir string) efi.Handle {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	h := efi.Handle(uintptr(len(fw.mounts) + 1))
	fw.mounts = append(fw.mounts, dir)
	fw.byHandle[h] = dir
	return h
}

func (fw *Firmware) FilesystemHandles() ([]efi.Handle, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	out := make([]efi.Handle, 0, len(fw.mounts))
	for h := range fw.byHandle {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (fw *Firmware) OpenFilesystem(h efi.Handle) (*efi.Filesystem, error) {
	fw.mu.Lock()
	dir, ok := fw.byHandle[h]
	fw.mu.Unlock()
	if !ok {
		return nil, efi.ErrNotExist
	}
	return efi.NewFilesystem(h, &dirBackend{root: dir}), nil
}

func (fw *Firmware) DevicePathForHandle(h efi.Handle) (efi.DevicePath, error) {
	fw.mu.Lock()
	_, ok := fw.byHandle[h]
	fw.mu.Unlock()
	if !ok {
		return efi.DevicePath{}, efi.ErrNotExist
	}
	return efi.DevicePath{}, nil
}

func (fw *Firmware) LoadImage(path efi.DevicePath) (efi.ImageHandle, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.nextImage++
	h := efi.ImageHandle(uintptr(fw.nextImage))
	fw.images[h] = &loadedImage{path: path}
	return h, nil
}

// LoadImageFromBuffer records data as a loaded image without interpreting
// it; a real UEFI firmware would hand the buffer to boot::load_image with
// LoadImageSource::FromBuffer, which this host-side reference cannot do
// since there is no boot services table once the OS has booted.
func (fw *Firmware) LoadImageFromBuffer(data []byte) (efi.ImageHandle, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.nextImage++
	h := efi.ImageHandle(uintptr(fw.nextImage))
	fw.images[h] = &loadedImage{}
	return h, nil
}

func (fw *Firmware) UnloadImage(h efi.ImageHandle) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	delete(fw.images, h)
	return nil
}

func (fw *Firmware) SetLoadOptions(h efi.ImageHandle, options []uint16) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	img, ok := fw.images[h]
	if !ok {
		return efi.ErrNotExist
	}
	img.options = options
	return nil
}

// ShimProtocol always reports absent: once booted into an OS there is no
// firmware protocol database to search, so this reference implementation
// never claims Shim is present. A real UEFI Firmware implementation (not
// provided by this package) locates it for real.
func (fw *Firmware) ShimProtocol() (efi.ShimProtocol, bool, error) {
	return nil, false, nil
}

func (fw *Firmware) SecurityArchHandlers() (efi.SecurityHandlers, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.security, nil
}

func (fw *Firmware) SetSecurityArchHandlers(h efi.SecurityHandlers) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.security = h
	return nil
}

func (fw *Firmware) InstallConfigTable(guid efi.GUID, data []byte) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.configTables[guid] = data
	return nil
}

func (fw *Firmware) UninstallConfigTable(guid efi.GUID) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	delete(fw.configTables, guid)
	return nil
}

func (fw *Firmware) PxeOffer() (*efi.PxeOffer, bool, error) {
	if fw.PxeOfferFunc == nil {
		return nil, false, nil
	}
	return fw.PxeOfferFunc()
}

// DiscoverPxeOffer performs a real DHCPv4 DORA exchange on iface and
// extracts the next-server address and boot file name an offer carries,
// for wiring to Firmware.PxeOfferFunc. There is no firmware PXE base code
// protocol once booted into an OS (see ShimProtocol's equivalent remark),
// so this reference implementation does the DHCP exchange itself using
// insomniacslk/dhcp rather than delegating to firmware.
func DiscoverPxeOffer(iface string) (*efi.PxeOffer, bool, error) {
	client := client4.NewClient()
	conv, err := client.Exchange(iface)
	if err != nil {
		return nil, false, xerrors.Errorf("dhcp exchange on %s failed: %w", iface, err)
	}

	var ack *dhcpv4.DHCPv4
	for _, pkt := range conv {
		if pkt.MessageType() == dhcpv4.MessageTypeAck {
			ack = pkt
		}
	}
	if ack == nil {
		return nil, false, nil
	}

	bootFile := ack.BootFileName
	if opt := ack.Options.Get(dhcpv4.OptionBootfileName); len(opt) > 0 {
		bootFile = string(opt)
	}
	if bootFile == "" {
		return nil, false, nil
	}

	return &efi.PxeOffer{ServerAddr: ack.ServerIPAddr.String(), BootFile: bootFile}, true, nil
}

// TftpDownload retrieves filename from serverAddr using pin/tftp/v3,
// buffering the whole transfer in memory the way the Loader's BootTftp
// step expects.
func (fw *Firmware) TftpDownload(serverAddr, filename string) ([]byte, error) {
	addr := serverAddr
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "69")
	}

	client, err := tftp.NewClient(addr)
	if err != nil {
		return nil, xerrors.Errorf("cannot create tftp client: %w", err)
	}

	wt, err := client.Receive(filename, "octet")
	if err != nil {
		return nil, xerrors.Errorf("cannot start tftp transfer of %s: %w", filename, err)
	}

	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, xerrors.Errorf("cannot read tftp transfer of %s: %w", filename, err)
	}
	return buf.Bytes(), nil
}

// Reboot, Shutdown, and ResetToFirmwareUI call the Linux reboot(2) syscall
// directly; on success they do not return. ResetToFirmwareUI additionally
// writes the OsIndications efivarfs request systemd-boot and other loaders
// use to ask firmware to enter setup on next boot; that write is
// best-effort, since efivarfs support varies across hosts and kernels.
func (fw *Firmware) Reboot() error {
	if err := unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART); err != nil {
		return xerrors.Errorf("reboot failed: %w", err)
	}
	return nil
}

func (fw *Firmware) Shutdown() error {
	if err := unix.Reboot(unix.LINUX_REBOOT_CMD_POWER_OFF); err != nil {
		return xerrors.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (fw *Firmware) ResetToFirmwareUI() error {
	if err := requestFirmwareSetup(); err != nil {
		return xerrors.Errorf("cannot request firmware setup: %w", err)
	}
	return fw.Reboot()
}

// osIndicationsBootToFirmwareUI is bit 0 of the OsIndications variable, as
// defined by the UEFI specification.
const osIndicationsBootToFirmwareUI = 0x1

func requestFirmwareSetup() error {
	path := fmt.Sprintf("%s/OsIndications-8be4df61-93ca-11d2-aa0d-00e098032b8c", efivarfsPath)
	attr := []byte{0x07, 0x00, 0x00, 0x00}
	val := make([]byte, 8)
	val[0] = osIndicationsBootToFirmwareUI
	return os.WriteFile(path, append(attr, val...), 0644)
}
