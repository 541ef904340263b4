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
	efilib "github.com/canonical/go-efilib"
)

var (
	// devicetreeTableGUID identifies the EFI configuration table entry a
	// staged devicetree blob is installed under.
	devicetreeTableGUID = efilib.MakeGUID(0xb1b621d5, 0xf19c, 0x41a5, 0x830b, [...]uint8{0xd9, 0x15, 0x2c, 0x69, 0xaa, 0xe0})
)
