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

const (
	blsPrefix = "\\loader\\entries"
	blsSuffix = ".conf"
)

// blsFields is the key=value document parsed out of one BLS type-1 fragment
// file; keys follow spec.md §4.C exactly (hyphenated, not the Rust
// reference's underscored keys).
type blsFields struct {
	title, version, machineID, sortKey     string
	linux, efiPath, options, devicetree    string
	architecture                           string
	initrd                                 []string
}

func parseBlsFields(content []byte) blsFields {
	var f blsFields
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(key) {
		case "title":
			f.title = value
		case "version":
			f.version = value
		case "machine-id":
			f.machineID = value
		case "sort-key":
			f.sortKey = value
		case "linux":
			f.linux = value
		case "initrd":
			f.initrd = append(f.initrd, value)
		case "efi":
			f.efiPath = value
		case "options":
			f.options = value
		case "devicetree":
			f.devicetree = value
		case "architecture":
			f.architecture = strings.ToLower(value)
		default:
			log.Printf("bls: unrecognized key %q", key)
		}
	}
	return f
}

// combinedOptions joins `initrd=...` tokens derived from every initrd line ahead
// of the explicit options line, matching spec.md S1's literal expected
// output (`initrd=\initramfs-linux.img root=/dev/sda2 rw`) rather than
// original source's BlsConfig::get_options, which appends them after.
func (f blsFields) combinedOptions() string {
	var b strings.Builder
	for _, initrd := range f.initrd {
		for _, tok := range strings.Fields(initrd) {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString("initrd=")
			b.WriteString(tok)
		}
	}
	if f.options != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(f.options)
	}
	return b.String()
}

// BLSParser discovers Boot Loader Specification type-1 fragment files under
// \loader\entries.
type BLSParser struct{}

func (*BLSParser) Origin() config.Origin { return config.OriginBLS }

func (*BLSParser) Parse(fw efi.Firmware, h efi.Handle, fs *efi.Filesystem, arch config.Architecture, out []config.Config) []config.Config {
	entries, err := fs.ReadDir(blsPrefix)
	if err != nil {
		return out
	}
	for _, e := range entries {
		if e.IsDir || !strings.HasSuffix(strings.ToLower(e.Name), blsSuffix) {
			continue
		}
		c, ok := parseBlsEntry(fw, h, fs, e.Name)
		if ok {
			out = append(out, c)
		}
	}
	return out
}

func parseBlsEntry(fw efi.Firmware, h efi.Handle, fs *efi.Filesystem, name string) (config.Config, bool) {
	content, err := fs.Read(blsPrefix + "\\" + name)
	if err != nil {
		log.Printf("bls: cannot read %s: %v", name, err)
		return config.Config{}, false
	}

	f := parseBlsFields(content)

	// linux and efi are mutually exclusive; linux implies a Linux kernel
	// stub load, efi is a direct executable path.
	efiPath := f.linux
	options := f.combinedOptions()
	if efiPath == "" {
		efiPath = f.efiPath
		options = f.options
	}
	if efiPath == "" {
		return config.Config{}, false
	}

	b := config.NewBuilder(name, blsSuffix).
		EfiPath(efiPath).
		Options(options).
		FsHandle(fw, h).
		Origin(config.OriginBLS)
	if f.title != "" {
		b = b.Title(f.title)
	}
	if f.version != "" {
		b = b.Version(f.version)
	}
	if f.machineID != "" {
		b = b.MachineID(f.machineID)
	}
	if f.sortKey != "" {
		b = b.SortKey(f.sortKey)
	}
	if f.devicetree != "" {
		b = b.DevicetreePath(f.devicetree)
	}
	if f.architecture != "" {
		b = b.Architecture(f.architecture)
	}

	c, err := b.Build()
	if err != nil {
		log.Printf("bls: %s: %v", name, err)
		return config.Config{}, false
	}
	return c, true
}
