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

	"github.com/some100/bootmgr-go/config"
	efi "github.com/some100/bootmgr-go/efi"
)

const (
	osxPrefix = "\\System\\Library\\CoreServices"
	osxSuffix = ".efi"
	osxFile   = "boot.efi"
)

// OSXParser detects the macOS boot loader by existence check only.
type OSXParser struct{}

func (*OSXParser) Origin() config.Origin { return config.OriginOSX }

func (*OSXParser) Parse(fw efi.Firmware, h efi.Handle, fs *efi.Filesystem, arch config.Architecture, out []config.Config) []config.Config {
	path := osxPrefix + "\\" + osxFile
	if !fs.Exists(path) {
		return out
	}

	c, err := config.NewBuilder(osxFile, osxSuffix).
		EfiPath(path).
		Title("macOS").
		SortKey("macos").
		FsHandle(fw, h).
		Origin(config.OriginOSX).
		Build()
	if err != nil {
		log.Printf("osx: %v", err)
		return out
	}
	return append(out, c)
}
