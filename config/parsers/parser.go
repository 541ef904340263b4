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

// Package parsers holds the per-source-format Config producers: BLS
// type-1, UKI (BLS type-2), Windows BCD, macOS, shell, fallback, and PXE.
// Grounded on original_source's config/parsers.rs and config/parsers/*.rs;
// each parser here implements the same {detect, produce} capability the
// Rust ConfigParser trait names, adapted to canonical-secboot's error-
// wrapping idiom since the teacher itself has no discovery-parser layer.
package parsers

import (
	"log"

	"github.com/some100/bootmgr-go/config"
	efi "github.com/some100/bootmgr-go/efi"
)

// Parser produces zero or more Configs from one filesystem. Implementations
// must not panic on malformed input, must bound their memory use, and may
// log warnings but must return with fewer entries on non-fatal failures —
// spec.md §4.C's common rules for the parser set.
type Parser interface {
	// Origin names this parser for precedence and display purposes.
	Origin() config.Origin

	// Parse appends zero or more Configs discovered on fs (mounted at h)
	// to out, returning the result.
	Parse(fw efi.Firmware, h efi.Handle, fs *efi.Filesystem, arch config.Architecture, out []config.Config) []config.Config
}

// DefaultRegistry lists every parser in precedence order: BLS > UKI >
// Windows > OSX > Shell > Fallback. Every parser is individually omittable
// — a Registry with zero entries still produces an empty list rather than
// failing, matching spec.md §9's "zero parsers enabled" requirement.
func DefaultRegistry() []Parser {
	return []Parser{
		&BLSParser{},
		&UKIParser{},
		&WindowsParser{},
		&OSXParser{},
		&ShellParser{},
		&FallbackParser{},
	}
}

// Run runs every parser in registry against every handle in handles,
// filters out architecture-mismatched entries, and applies the Fallback
// exclusivity correction: Fallback only contributes an entry for a
// filesystem if no other parser produced one for that same handle — a
// correction against the original source's fallback.rs, which spec.md
// §4.C requires but the Rust reference did not implement (see DESIGN.md).
func Run(fw efi.Firmware, handles []efi.Handle, registry []Parser, arch config.Architecture) []config.Config {
	var all []config.Config

	for _, h := range handles {
		fs, err := fw.OpenFilesystem(h)
		if err != nil {
			log.Printf("parsers: cannot open filesystem %v: %v", h, err)
			continue
		}

		var perFs []config.Config
		var fallback Parser
		for _, p := range registry {
			if _, ok := p.(*FallbackParser); ok {
				fallback = p
				continue
			}
			perFs = p.Parse(fw, h, fs, arch, perFs)
		}
		if fallback != nil && len(perFs) == 0 {
			perFs = fallback.Parse(fw, h, fs, arch, perFs)
		}

		for _, c := range perFs {
			if c.Arch != "" && c.Arch != arch {
				continue
			}
			all = append(all, c)
		}
	}

	return all
}
