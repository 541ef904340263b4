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

// Package bootconfig reads and applies the persistent user-preference
// overlay file \loader\bootmgr-rs.conf, grounded on original source's
// boot/config.rs BootConfig (mechanics only — the field set is corrected
// to spec.md's string-selector model rather than the index-typed
// `default: Option<usize>` the Rust source used).
package bootconfig

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/some100/bootmgr-go/config"
	efi "github.com/some100/bootmgr-go/efi"
)

const overlayPath = "\\loader\\bootmgr-rs.conf"

// Config is the parsed contents of the overlay file. The default returned
// when the file is absent (defaultConfig) has TimeoutSecs 5 and everything
// else empty/false, matching original source's BootConfig::default timeout.
type Config struct {
	TimeoutSecs   uint32
	Default       string
	EditorEnabled bool
	PxeEnabled    bool
	Hidden        []string
	Bad           []string
}

func defaultConfig() Config {
	return Config{TimeoutSecs: 5}
}

// Parse reads and parses the overlay file from fs. A missing file is not an
// error: defaultConfig() is returned. Any other I/O error is surfaced.
// Unknown keys are warned and ignored; malformed integer/bool values leave
// the corresponding field at its previous value.
func Parse(fs *efi.Filesystem) (Config, error) {
	if !fs.Exists(overlayPath) {
		return defaultConfig(), nil
	}
	content, err := fs.Read(overlayPath)
	if err != nil {
		return Config{}, err
	}
	return parseContent(content), nil
}

// Find looks for the overlay file on each of handles in turn, in firmware
// enumeration order, and parses the first one it exists on. None of this
// tree's abstraction surfaces which filesystem handle a running image was
// loaded from (the concept original source's BootConfig::new relies on by
// reading boot::image_handle()'s own volume), so BootMgr resolves this by
// scanning every discovered filesystem instead of assuming a privileged
// handle; defaultConfig() is returned if no handle carries the file.
func Find(fw efi.Firmware, handles []efi.Handle) (Config, error) {
	for _, h := range handles {
		fs, err := fw.OpenFilesystem(h)
		if err != nil {
			log.Printf("bootconfig: cannot open filesystem %v: %v", h, err)
			continue
		}
		if fs.Exists(overlayPath) {
			return Parse(fs)
		}
	}
	return defaultConfig(), nil
}

func parseContent(content []byte) Config {
	cfg := defaultConfig()
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
		case "timeout":
			if n, err := strconv.ParseUint(value, 10, 32); err == nil {
				cfg.TimeoutSecs = uint32(n)
			}
		case "default":
			cfg.Default = value
		case "editor":
			if b, ok := parseBool(value); ok {
				cfg.EditorEnabled = b
			}
		case "pxe":
			if b, ok := parseBool(value); ok {
				cfg.PxeEnabled = b
			}
		case "hidden":
			cfg.Hidden = append(cfg.Hidden, value)
		case "bad":
			cfg.Bad = append(cfg.Bad, value)
		default:
			log.Printf("bootconfig: unrecognized key %q", key)
		}
	}
	return cfg
}

func parseBool(value string) (bool, bool) {
	switch strings.ToLower(value) {
	case "true", "yes", "1":
		return true, true
	case "false", "no", "0":
		return false, true
	default:
		return false, false
	}
}

// ErrDefaultIsBad is returned by Apply when the overlay's default selector
// names an entry that the same overlay also marks bad — spec.md §9's open
// question on precedence is resolved by treating that combination as
// invalid input rather than guessing a precedence order.
var ErrDefaultIsBad = errors.New("bootconfig: default selector matches a config also marked bad")

// Apply marks forced-bad entries, returns ErrDefaultIsBad if the default
// selector names a bad entry, then filters hidden entries and resolves the
// default index, in that order, covering §4.D's steps (a), (b) and (d)
// (synthetic action entries, (c), are appended by the BootMgr
// facade, which owns the action-kind vocabulary). It returns the surviving
// entries in their original relative order and the index of the default
// entry within that slice (0 if none matched).
func Apply(cfg Config, entries []config.Config) ([]config.Config, int, error) {
	marked := make([]config.Config, len(entries))
	copy(marked, entries)
	for i, c := range marked {
		if matchesAny(c, cfg.Bad) {
			marked[i].Bad = true
		}
	}

	if cfg.Default != "" {
		for _, c := range marked {
			if matchesSelector(c, cfg.Default) && c.Bad {
				return nil, 0, ErrDefaultIsBad
			}
		}
	}

	var visible []config.Config
	defaultIdx := 0
	for _, c := range marked {
		if matchesAny(c, cfg.Hidden) {
			continue
		}
		if cfg.Default != "" && matchesSelector(c, cfg.Default) {
			defaultIdx = len(visible)
		}
		visible = append(visible, c)
	}

	return visible, defaultIdx, nil
}

func matchesSelector(c config.Config, sel string) bool {
	return sel != "" && (sel == c.Filename || sel == c.Title || sel == string(c.SortKey))
}

func matchesAny(c config.Config, sels []string) bool {
	for _, sel := range sels {
		if matchesSelector(c, sel) {
			return true
		}
	}
	return false
}
