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

// Package loader converts a validated config.Config into a loaded,
// Shim-aware image handle, grounded on original source's
// boot/loader/efi.rs load_boot_option/setup_image, adapted to spec.md
// §4.H's eight-step algorithm: no `static`/`RefCell` load-options cell (Go
// has no equivalent restriction — the UCS-2 buffer is just a local slice
// kept alive by the returned error/handle lifetime, not a process-wide
// singleton), real null-vs-empty LoadOptions semantics (step 6), and a
// devicetree guard returned to the caller instead of dropped implicitly.
package loader

import (
	"errors"
	"unicode/utf16"

	"github.com/some100/bootmgr-go/config"
	efi "github.com/some100/bootmgr-go/efi"
	efilib "github.com/canonical/go-efilib"
)

// ErrMissingHandle is returned when cfg names a BootEfi/BootTftp action but
// carries no filesystem handle, matching original source's
// LoadError::ConfigMissingHandle.
var ErrMissingHandle = errors.New("loader: config has no filesystem handle")

// Result is everything BootMgr needs to hand control to the caller: the
// loaded image and, if cfg named a devicetree, the guard staging it. The
// guard's Release must be called by the caller once the started image no
// longer needs the table entry — matching spec.md §5's resource-ordering
// rule that the devicetree guard outlives LoadImage but is owned by the
// caller, not the Loader.
type Result struct {
	Image      efi.ImageHandle
	Devicetree *efi.DevicetreeGuard
}

// Load implements spec.md §4.H's load_boot_option algorithm for a BootEfi
// or BootTftp Config. Reboot/Shutdown/ResetFirmware actions are handled by
// the BootMgr facade directly and never reach here.
func Load(fw efi.Firmware, cfg config.Config) (Result, error) {
	switch cfg.Action {
	case config.BootEfi:
		return loadEfi(fw, cfg)
	case config.BootTftp:
		return loadTftp(fw, cfg)
	default:
		return Result{}, errors.New("loader: config names a non-loadable action")
	}
}

func loadEfi(fw efi.Firmware, cfg config.Config) (Result, error) {
	if !cfg.HasHandle {
		return Result{}, ErrMissingHandle
	}

	devPath, err := devicePathFor(fw, efi.Handle(cfg.FsHandle), string(cfg.EfiPath))
	if err != nil {
		return Result{}, err
	}

	sb, err := efi.AcquireSecurityOverride(fw)
	if err != nil {
		return Result{}, err
	}
	defer sb.Release()

	img, err := fw.LoadImage(devPath)
	if err != nil {
		return Result{}, err
	}

	return finishLoad(fw, img, cfg)
}

func loadTftp(fw efi.Firmware, cfg config.Config) (Result, error) {
	data, err := fw.TftpDownload(cfg.Filename, string(cfg.EfiPath))
	if err != nil {
		return Result{}, err
	}

	sb, err := efi.AcquireSecurityOverride(fw)
	if err != nil {
		return Result{}, err
	}
	defer sb.Release()

	img, err := fw.LoadImageFromBuffer(data)
	if err != nil {
		return Result{}, err
	}

	return finishLoad(fw, img, cfg)
}

// finishLoad implements setup_image: optional devicetree staging, then
// load options, unloading the image on either failure per spec.md §4.H's
// failure semantics.
func finishLoad(fw efi.Firmware, img efi.ImageHandle, cfg config.Config) (Result, error) {
	var dtGuard *efi.DevicetreeGuard

	if cfg.Devicetree != "" {
		blob, err := readDevicetree(fw, cfg)
		if err != nil {
			fw.UnloadImage(img)
			return Result{}, err
		}
		dtGuard, err = efi.StageDevicetree(fw, blob, string(cfg.Arch))
		if err != nil {
			fw.UnloadImage(img)
			return Result{}, err
		}
	}

	if cfg.Options != "" {
		if err := fw.SetLoadOptions(img, encodeUCS2Units(cfg.Options)); err != nil {
			if dtGuard != nil {
				dtGuard.Release()
			}
			fw.UnloadImage(img)
			return Result{}, err
		}
	}

	return Result{Image: img, Devicetree: dtGuard}, nil
}

func readDevicetree(fw efi.Firmware, cfg config.Config) ([]byte, error) {
	if !cfg.HasHandle {
		return nil, ErrMissingHandle
	}
	fs, err := fw.OpenFilesystem(efi.Handle(cfg.FsHandle))
	if err != nil {
		return nil, err
	}
	return fs.Read(string(cfg.Devicetree))
}

func devicePathFor(fw efi.Firmware, h efi.Handle, efiPath string) (efi.DevicePath, error) {
	base, err := fw.DevicePathForHandle(h)
	if err != nil {
		return efi.DevicePath{}, err
	}
	return appendFilePathNode(base, efiPath), nil
}

// appendFilePathNode concatenates a filesystem's device path with the
// file-path node naming efiPath within it, per spec.md §4.H step 2,
// grounded on the teacher's own device-path construction idiom
// (efi/preinstall/load_option_util_test.go's FilePathDevicePathNode use).
func appendFilePathNode(base efi.DevicePath, efiPath string) efi.DevicePath {
	out := make(efi.DevicePath, len(base)+1)
	copy(out, base)
	out[len(base)] = efilib.FilePathDevicePathNode(efiPath)
	return out
}

// encodeUCS2Units encodes s as a NUL-terminated UTF-16 code unit slice, the
// form UEFI LoadOptions requires.
func encodeUCS2Units(s string) []uint16 {
	u := utf16.Encode([]rune(s))
	out := make([]uint16, len(u)+1)
	copy(out, u)
	return out
}
