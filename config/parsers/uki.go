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
	"bytes"
	"io"
	"log"
	"strings"

	"github.com/some100/bootmgr-go/config"
	efi "github.com/some100/bootmgr-go/efi"
)

const (
	ukiPrefix = "\\EFI\\Linux"
	ukiSuffix = ".efi"
)

// osrel is the subset of freedesktop os-release fields UKI titles/versions
// are derived from, grounded on original source's Osrel.
type osrel struct {
	name, id, imageID, imageVersion, prettyName, version, versionID, buildID string
}

func parseOsrel(content []byte) osrel {
	var o osrel
	text := strings.ReplaceAll(string(content), `"`, "")
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "NAME":
			o.name = value
		case "ID":
			o.id = value
		case "IMAGE_ID":
			o.imageID = value
		case "IMAGE_VERSION":
			o.imageVersion = value
		case "PRETTY_NAME":
			o.prettyName = value
		case "VERSION":
			o.version = value
		case "VERSION_ID":
			o.versionID = value
		case "BUILD_ID":
			o.buildID = value
		}
	}
	return o
}

// normalizeCmdline tokenizes a .cmdline section's raw bytes on whitespace
// and rejoins with single spaces, per SPEC_FULL.md §4.C: a line-wrapped or
// multi-space cmdline embedded in the PE section must not leak its
// embedded newlines/runs of spaces into Config.Options.
func normalizeCmdline(data []byte) string {
	return strings.Join(strings.Fields(string(data)), " ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// UKIParser discovers Unified Kernel Images (BLS type-2) under \EFI\Linux.
type UKIParser struct{}

func (*UKIParser) Origin() config.Origin { return config.OriginUKI }

func (*UKIParser) Parse(fw efi.Firmware, h efi.Handle, fs *efi.Filesystem, arch config.Architecture, out []config.Config) []config.Config {
	entries, err := fs.ReadDir(ukiPrefix)
	if err != nil {
		return out
	}
	for _, e := range entries {
		if e.IsDir || !strings.HasSuffix(strings.ToLower(e.Name), ukiSuffix) {
			continue
		}
		c, ok := parseUkiEntry(fw, h, fs, e.Name)
		if ok {
			out = append(out, c)
		}
	}
	return out
}

func parseUkiEntry(fw efi.Firmware, h efi.Handle, fs *efi.Filesystem, name string) (config.Config, bool) {
	path := ukiPrefix + "\\" + name
	content, err := fs.Read(path)
	if err != nil {
		log.Printf("uki: cannot read %s: %v", name, err)
		return config.Config{}, false
	}

	img, err := openPeImage(content)
	if err != nil {
		log.Printf("uki: cannot parse %s: %v", name, err)
		return config.Config{}, false
	}
	defer img.Close()

	var rel osrel
	if s := img.OpenSection(".osrel"); s != nil {
		data, err := io.ReadAll(s)
		if err == nil {
			rel = parseOsrel(data)
		}
	}

	var options string
	if s := img.OpenSection(".cmdline"); s != nil {
		data, err := io.ReadAll(s)
		if err == nil {
			options = normalizeCmdline(data)
		}
	}

	title := firstNonEmpty(rel.prettyName, rel.imageID, rel.name, rel.id)
	if title == "" {
		title = "Linux"
	}
	sortKey := firstNonEmpty(rel.imageID, rel.id)
	if sortKey == "" {
		sortKey = "linux"
	}
	version := firstNonEmpty(rel.imageVersion, rel.version, rel.versionID, rel.buildID)

	b := config.NewBuilder(name, ukiSuffix).
		EfiPath(path).
		Title(title).
		SortKey(sortKey).
		Options(options).
		FsHandle(fw, h).
		Origin(config.OriginUKI)
	if version != "" {
		b = b.Version(version)
	}

	c, err := b.Build()
	if err != nil {
		log.Printf("uki: %s: %v", name, err)
		return config.Config{}, false
	}
	return c, true
}

// openPeImage adapts the in-memory byte slice content reads of this
// tree's filesystem facade onto efi.PeImageHandle, which expects an
// io.ReadCloser.
func openPeImage(content []byte) (efi.PeImageHandle, error) {
	return efi.OpenPeImage(io.NopCloser(bytes.NewReader(content)))
}
