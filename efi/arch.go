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

import "runtime"

// hostArchitectureTag maps runtime.GOARCH onto the four architecture tags
// this tree uses everywhere else (config.DetectHostArchitecture mirrors this
// mapping; it is duplicated rather than imported from here to keep package
// efi free of a dependency on package config).
func hostArchitectureTag() string {
	switch runtime.GOARCH {
	case "386":
		return "ia32"
	case "amd64":
		return "x64"
	case "arm":
		return "arm"
	case "arm64":
		return "aa64"
	default:
		return runtime.GOARCH
	}
}
