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

// Package editor implements a field-typed edit buffer over a Config,
// grounded on original source's config/editor.rs ConfigEditor, adapted
// from its frontend-facing field-cursor model (idx/next_field/prev_field,
// which belongs to the out-of-scope terminal frontend) down to the
// set/commit surface spec.md §4.E actually names.
package editor

import (
	"fmt"

	"github.com/some100/bootmgr-go/config"
)

// Editor accumulates field edits against a config.Builder seeded from an
// existing Config. That Config is never mutated, not even by Commit.
type Editor struct {
	builder *config.Builder
}

// New starts editing a copy of cfg. cfg itself is never modified by any
// later SetField/Commit call.
func New(cfg *config.Config) *Editor {
	return &Editor{builder: config.FromConfig(*cfg)}
}

// SetField dispatches value to the same named-field validator the Builder
// exposes, matching original source's ConfigEditor::build dispatch table.
// An empty value is a no-op, matching the Rust source's "only apply
// non-empty fields" rule. It returns an error naming the field if no such
// field exists or its validator rejects value.
func (e *Editor) SetField(name, value string) error {
	if value == "" {
		return nil
	}
	before := len(e.builder.Errors())
	switch name {
	case "title":
		e.builder.Title(value)
	case "version":
		e.builder.Version(value)
	case "machine_id", "machine-id":
		e.builder.MachineID(value)
	case "sort_key", "sort-key":
		e.builder.SortKey(value)
	case "options":
		e.builder.Options(value)
	case "devicetree":
		e.builder.DevicetreePath(value)
	case "architecture":
		e.builder.Architecture(value)
	case "efi":
		e.builder.EfiPath(value)
	default:
		return fmt.Errorf("editor: unknown field %q", name)
	}
	if errs := e.builder.Errors(); len(errs) > before {
		return errs[len(errs)-1]
	}
	return nil
}

// Commit builds and returns the edited Config. The original Config passed
// to New is unaffected regardless of outcome.
func (e *Editor) Commit() (config.Config, error) {
	return e.builder.Build()
}
