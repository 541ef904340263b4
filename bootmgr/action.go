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

package bootmgr

import (
	"log"

	"github.com/some100/bootmgr-go/bootconfig"
	"github.com/some100/bootmgr-go/config"
	"github.com/some100/bootmgr-go/config/parsers"
	efi "github.com/some100/bootmgr-go/efi"
)

// specialBoot is the fixed set of synthetic action entries appended to
// every discovered list, grounded on original source's add_special_boot
// (boot/action.rs). Each row pairs the entry's title with the
// config.BootAction that appendSpecialBoot builds it with.
var specialBoot = []struct {
	title  string
	action config.BootAction
}{
	{"Reboot", config.Reboot},
	{"Shutdown", config.Shutdown},
	{"Reboot Into Firmware Interface", config.ResetFirmware},
}

// appendSpecialBoot appends the fixed reboot/shutdown/firmware-setup
// entries, and, if the overlay enables PXE discovery and the firmware
// reports an active offer, a PXE entry. Each synthetic entry carries no
// filesystem handle and no EfiPath, matching config.Builder.Build's
// allowance that only BootEfi/BootTftp actions require one.
func appendSpecialBoot(entries []config.Config, fw efi.Firmware, overlay bootconfig.Config) []config.Config {
	for _, sb := range specialBoot {
		c, err := config.NewBuilder(sb.title, "").
			Title(sb.title).
			SortKey("action").
			Action(sb.action).
			Build()
		if err != nil {
			log.Printf("bootmgr: failed to build special action %q: %v", sb.title, err)
			continue
		}
		entries = append(entries, c)
	}

	if overlay.PxeEnabled {
		if c, ok := parsers.ParsePxe(fw); ok {
			entries = append(entries, c)
		}
	}

	return entries
}
