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

const fallbackPrefix = "\\EFI\\BOOT"
const fallbackSuffix = ".efi"

func fallbackFilename(arch config.Architecture) string {
	switch arch {
	case config.ArchX64:
		return "BOOTX64.efi"
	case config.ArchIA32:
		return "BOOTIA32.efi"
	case config.ArchAA64:
		return "BOOTAA64.efi"
	case config.ArchArm:
		return "BOOTARM.efi"
	default:
		return ""
	}
}

// FallbackParser detects the architecture-appropriate removable-media
// fallback loader. Run's post-pass only invokes this parser for a
// filesystem when every other parser produced nothing for it — see
// parser.go's Run and DESIGN.md for why that correction against the
// original source's fallback.rs (which has no such exclusivity) is
// required by spec.md §4.C.
type FallbackParser struct{}

func (*FallbackParser) Origin() config.Origin { return config.OriginFallback }

func (*FallbackParser) Parse(fw efi.Firmware, h efi.Handle, fs *efi.Filesystem, arch config.Architecture, out []config.Config) []config.Config {
	filename := fallbackFilename(arch)
	if filename == "" {
		return out
	}
	path := fallbackPrefix + "\\" + filename
	if !fs.Exists(path) {
		return out
	}

	title := filename
	if label, err := fs.VolumeLabel(); err == nil && label != "" {
		title = label
	}

	c, err := config.NewBuilder(filename, fallbackSuffix).
		EfiPath(path).
		Title(title).
		SortKey("fallback").
		FsHandle(fw, h).
		Origin(config.OriginFallback).
		Build()
	if err != nil {
		log.Printf("fallback: %v", err)
		return out
	}
	return append(out, c)
}
