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

// Package bootmgr is the top-level facade: it discovers boot entries,
// applies the persistent overlay, appends the synthetic reboot/shutdown/
// firmware-setup actions and any PXE offer, sorts the result, and hands out
// a read-only List plus a Load that dispatches to the Loader or directly to
// firmware reset services. Grounded on original source's boot.rs BootMgr
// (the newer, private-configs-field `scan_configs` shape) and boot/
// action.rs's add_special_boot, translated from its ordered Vec-of-actions
// table to the same idiom the rest of this tree uses: a []config.Config the
// caller can read, sort, and index directly.
package bootmgr

import (
	"errors"
	"sort"

	"github.com/some100/bootmgr-go/bootconfig"
	"github.com/some100/bootmgr-go/config"
	"github.com/some100/bootmgr-go/config/parsers"
	efi "github.com/some100/bootmgr-go/efi"
	"github.com/some100/bootmgr-go/loader"
)

// ErrIndexOutOfRange is returned by Load when idx does not name an entry in
// the current List.
var ErrIndexOutOfRange = errors.New("bootmgr: index out of range")

// BootMgr is the discovered, overlay-applied, sorted set of boot entries
// for one Firmware. It is not safe for concurrent mutation by multiple
// goroutines (spec.md §5's single-actor assumption; see DESIGN.md for the
// one deliberate exception, the Security Override's mutex).
type BootMgr struct {
	fw         efi.Firmware
	configs    []config.Config
	overlay    bootconfig.Config
	defaultIdx int
}

// New discovers every boot entry reachable from fw: it enumerates
// filesystem handles, runs the parser registry against them, reads and
// applies the BootConfig overlay, appends the synthetic
// reboot/shutdown/firmware-setup entries (add_special_boot) plus a PXE entry
// when the overlay enables pxe and the firmware reports an offer, and sorts
// everything per config.Compare. The returned BootMgr owns this
// snapshot; entries discovered after firmware/media state changes require
// a new call to New.
func New(fw efi.Firmware) (*BootMgr, error) {
	handles, err := fw.FilesystemHandles()
	if err != nil {
		return nil, err
	}

	arch := config.DetectHostArchitecture()
	discovered := parsers.Run(fw, handles, parsers.DefaultRegistry(), arch)

	overlay, err := bootconfig.Find(fw, handles)
	if err != nil {
		return nil, err
	}

	visible, defaultIdx, err := bootconfig.Apply(overlay, discovered)
	if err != nil {
		return nil, err
	}

	visible = appendSpecialBoot(visible, fw, overlay)

	sort.SliceStable(visible, func(i, j int) bool {
		return config.Compare(visible[i], visible[j], overlay.Default) < 0
	})

	bm := &BootMgr{fw: fw, configs: visible, overlay: overlay}
	if overlay.Default != "" {
		for i, c := range bm.configs {
			if matchesDefault(c, overlay.Default) {
				defaultIdx = i
				break
			}
		}
	}
	bm.defaultIdx = defaultIdx

	return bm, nil
}

func matchesDefault(c config.Config, sel string) bool {
	return sel == c.Filename || sel == c.Title || sel == string(c.SortKey)
}

// List returns the current boot entries, in display order. The caller must
// not mutate the returned slice's backing array.
func (bm *BootMgr) List() []config.Config {
	return bm.configs
}

// DefaultIndex is the List index BootMgr would load given no explicit
// selection, per the overlay's default selector (falling back to 0, the
// first entry in display order, if no selector was set or it matched
// nothing).
func (bm *BootMgr) DefaultIndex() int {
	return bm.defaultIdx
}

// PreferredTitle returns List()[idx]'s display title, delegating to
// config.Config.PreferredTitle.
func (bm *BootMgr) PreferredTitle(idx int) (string, error) {
	if idx < 0 || idx >= len(bm.configs) {
		return "", ErrIndexOutOfRange
	}
	return bm.configs[idx].PreferredTitle(idx), nil
}

// Load runs the entry at idx. For BootEfi/BootTftp entries this dispatches
// to loader.Load and returns its Result. For the synthetic Reboot/Shutdown/
// ResetFirmware actions it calls the corresponding firmware reset service
// directly and does not return on success, per spec.md §4.H step 1.
func (bm *BootMgr) Load(idx int) (loader.Result, error) {
	if idx < 0 || idx >= len(bm.configs) {
		return loader.Result{}, ErrIndexOutOfRange
	}
	cfg := bm.configs[idx]

	switch cfg.Action {
	case config.Reboot:
		return loader.Result{}, bm.fw.Reboot()
	case config.Shutdown:
		return loader.Result{}, bm.fw.Shutdown()
	case config.ResetFirmware:
		return loader.Result{}, bm.fw.ResetToFirmwareUI()
	default:
		res, err := loader.Load(bm.fw, cfg)
		if err != nil {
			bm.configs[idx].Bad = true
			return loader.Result{}, err
		}
		return res, nil
	}
}
