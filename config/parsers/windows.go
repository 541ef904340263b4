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

package parsers

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/some100/bootmgr-go/bootconfig/winhive"
	"github.com/some100/bootmgr-go/config"
	efi "github.com/some100/bootmgr-go/efi"
)

const (
	winPrefix        = "\\EFI\\Microsoft\\Boot"
	winSuffix        = ".efi"
	winBootmgr       = "bootmgfw.efi"
	winDefaultTitle  = "Windows Boot Manager"
	winDisplayOrder  = "Objects\\{9dea862c-5cdd-4e70-acc1-f32b344d4795}\\Elements\\24000001"
)

// WindowsParser detects the Windows Boot Manager and, where present, reads
// its BCD hive for the default object's display name.
type WindowsParser struct{}

func (*WindowsParser) Origin() config.Origin { return config.OriginWindows }

func (*WindowsParser) Parse(fw efi.Firmware, h efi.Handle, fs *efi.Filesystem, arch config.Architecture, out []config.Config) []config.Config {
	bootmgrPath := winPrefix + "\\" + winBootmgr
	if !fs.Exists(bootmgrPath) {
		return out
	}

	title := winDefaultTitle
	if bcd, err := fs.Read(winPrefix + "\\BCD"); err == nil {
		if t, ok := bcdDefaultTitle(bcd); ok {
			title = t
		}
	} else if !errors.Is(err, efi.ErrNotExist) {
		log.Printf("windows: cannot read BCD: %v", err)
	}

	b := config.NewBuilder(winBootmgr, winSuffix).
		EfiPath(bootmgrPath).
		Title(title).
		SortKey("windows").
		FsHandle(fw, h).
		Origin(config.OriginWindows)
	c, err := b.Build()
	if err != nil {
		log.Printf("windows: %v", err)
		return out
	}
	return append(out, c)
}

// bcdDefaultTitle opens content as a registry hive and follows the
// displayorder element of the boot manager object to its description,
// grounded on original source's WinConfig::new (windows_bcd.rs). Any parse
// failure is treated as "no title found", not fatal — the caller falls
// back to the default Windows Boot Manager title.
func bcdDefaultTitle(content []byte) (string, bool) {
	hive, err := winhive.Open(content)
	if err != nil {
		log.Printf("windows: bcd: %v", err)
		return "", false
	}
	root, err := hive.RootKeyNode()
	if err != nil {
		log.Printf("windows: bcd: %v", err)
		return "", false
	}

	key, ok, err := root.Subpath(winDisplayOrder)
	if err != nil || !ok {
		return "", false
	}
	guids, ok, err := key.MultiStringValue("Element")
	if err != nil || !ok || len(guids) != 1 {
		return "", false
	}

	guid := strings.Trim(guids[0], "{}")
	descPath := fmt.Sprintf("Objects\\{%s}\\Elements\\12000004", guid)
	descKey, ok, err := root.Subpath(descPath)
	if err != nil || !ok {
		return "", false
	}
	desc, ok, err := descKey.StringValue("Element")
	if err != nil || !ok || desc == "" {
		return "", false
	}
	return desc, true
}
