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

const shellSuffix = ".efi"

// shellFilename returns the architecture-appropriate UEFI shell binary
// name, or "" if arch has no known shell build — matching original source's
// fallback.rs architecture-tag switch, reused here for the shell detector
// per spec.md's "architecture-appropriate \shell*.efi".
func shellFilename(arch config.Architecture) string {
	switch arch {
	case config.ArchX64:
		return "shellx64.efi"
	case config.ArchIA32:
		return "shellia32.efi"
	case config.ArchAA64:
		return "shellaa64.efi"
	case config.ArchArm:
		return "shellarm.efi"
	default:
		return ""
	}
}

// ShellParser detects the UEFI shell at the root of a volume by existence
// check only.
type ShellParser struct{}

func (*ShellParser) Origin() config.Origin { return config.OriginShell }

func (*ShellParser) Parse(fw efi.Firmware, h efi.Handle, fs *efi.Filesystem, arch config.Architecture, out []config.Config) []config.Config {
	filename := shellFilename(arch)
	if filename == "" {
		return out
	}
	path := "\\" + filename
	if !fs.Exists(path) {
		return out
	}

	c, err := config.NewBuilder(filename, shellSuffix).
		EfiPath(path).
		Title("UEFI Shell").
		SortKey("shell").
		FsHandle(fw, h).
		Origin(config.OriginShell).
		Build()
	if err != nil {
		log.Printf("shell: %v", err)
		return out
	}
	return append(out, c)
}
