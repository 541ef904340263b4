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
	"log"
	"strings"

	"github.com/some100/bootmgr-go/config"
	efi "github.com/some100/bootmgr-go/efi"
)

// ParsePxe emits a single Config for the active boot handle's DHCP PXE
// offer, if one was received. Unlike every other Parser, this does not walk
// a filesystem — a PXE offer is a property of the boot handle itself, not
// of a mounted volume — so it is not part of DefaultRegistry and Run's
// per-filesystem loop; BootMgr calls it once, directly, grounded on
// original source's get_pxe_offer (boot/action/pxe.rs).
//
// An HTTP(S) boot file URL is rejected outright: this tree has no HTTP boot
// support, matching the original source's reasoning that a server offering
// one is misconfigured relative to this loader.
func ParsePxe(fw efi.Firmware) (config.Config, bool) {
	offer, ok, err := fw.PxeOffer()
	if err != nil {
		log.Printf("pxe: %v", err)
		return config.Config{}, false
	}
	if !ok || offer == nil {
		return config.Config{}, false
	}
	if strings.HasPrefix(offer.BootFile, "http://") || strings.HasPrefix(offer.BootFile, "https://") {
		log.Printf("pxe: ignoring HTTP boot offer %q", offer.BootFile)
		return config.Config{}, false
	}

	c, err := config.NewBuilder(offer.ServerAddr, "").
		EfiPath(offer.BootFile).
		Title("PXE Boot: " + offer.BootFile).
		SortKey("pxe").
		Action(config.BootTftp).
		Origin(config.OriginPxe).
		Build()
	if err != nil {
		log.Printf("pxe: %v", err)
		return config.Config{}, false
	}
	return c, true
}
