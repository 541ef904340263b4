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

package config

import (
	. "gopkg.in/check.v1"

	efi "github.com/some100/bootmgr-go/efi"
)

type builderSuite struct{}

var _ = Suite(&builderSuite{})

// stubFirmware satisfies just enough of efi.Firmware for FsHandle's
// existence check.
type stubFirmware struct {
	efi.Firmware
	known map[efi.Handle]bool
}

func (f *stubFirmware) OpenFilesystem(h efi.Handle) (*efi.Filesystem, error) {
	if !f.known[h] {
		return nil, efi.ErrNotExist
	}
	return efi.NewFilesystem(h, nil), nil
}

func (s *builderSuite) TestBuildMinimalBootEfi(c *C) {
	cfg, err := NewBuilder("shimx64.efi", ".efi").
		EfiPath(`\EFI\ubuntu\shimx64.efi`).
		Build()
	c.Assert(err, IsNil)
	c.Check(cfg.Filename, Equals, "shimx64.efi")
	c.Check(string(cfg.EfiPath), Equals, `\EFI\ubuntu\shimx64.efi`)
	c.Check(cfg.Action, Equals, BootEfi)
}

func (s *builderSuite) TestBuildMissingFilename(c *C) {
	_, err := NewBuilder("", "").Build()
	c.Check(err, Equals, errMissingFilename)
}

func (s *builderSuite) TestBuildMissingEfiPathForBootEfi(c *C) {
	_, err := NewBuilder("entry.conf", ".conf").Build()
	c.Check(err, Equals, errMissingEfiPath)
}

func (s *builderSuite) TestBuildSuffixMismatch(c *C) {
	_, err := NewBuilder("entry.conf", ".txt").EfiPath(`\a`).Build()
	c.Check(err, Equals, errSuffixMismatch)
}

func (s *builderSuite) TestSyntheticActionNeedsNoEfiPath(c *C) {
	cfg, err := NewBuilder("Reboot", "").Action(Reboot).Build()
	c.Assert(err, IsNil)
	c.Check(cfg.Action, Equals, Reboot)
	c.Check(cfg.EfiPath, Equals, EfiPath(""))
}

func (s *builderSuite) TestFsHandleAccumulatesErrorOnUnknownHandle(c *C) {
	fw := &stubFirmware{known: map[efi.Handle]bool{}}
	b := NewBuilder("entry.conf", ".conf").EfiPath(`\a`).FsHandle(fw, efi.Handle(1))
	c.Check(b.Errors(), HasLen, 1)
	cfg, err := b.Build()
	c.Assert(err, IsNil)
	c.Check(cfg.HasHandle, Equals, false)
}

func (s *builderSuite) TestFsHandleAcceptsKnownHandle(c *C) {
	fw := &stubFirmware{known: map[efi.Handle]bool{1: true}}
	cfg, err := NewBuilder("entry.conf", ".conf").EfiPath(`\a`).FsHandle(fw, efi.Handle(1)).Build()
	c.Assert(err, IsNil)
	c.Check(cfg.HasHandle, Equals, true)
	c.Check(cfg.FsHandle, Equals, FsHandle(1))
}

func (s *builderSuite) TestFromConfigSeedsAllFields(c *C) {
	orig, err := NewBuilder("shimx64.efi", ".efi").EfiPath(`\a`).Title("Ubuntu").Build()
	c.Assert(err, IsNil)

	edited, err := FromConfig(orig).Title("Ubuntu 22.04").Build()
	c.Assert(err, IsNil)
	c.Check(edited.Title, Equals, "Ubuntu 22.04")
	c.Check(edited.Filename, Equals, orig.Filename)
	c.Check(orig.Title, Equals, "Ubuntu")
}

func (s *builderSuite) TestInvalidSortKeyLeavesFieldUnsetAndRecordsError(c *C) {
	b := NewBuilder("entry.conf", ".conf").EfiPath(`\a`).SortKey("bad key")
	c.Check(b.Errors(), HasLen, 1)
	cfg, err := b.Build()
	c.Assert(err, IsNil)
	c.Check(cfg.SortKey, Equals, SortKey(""))
}
