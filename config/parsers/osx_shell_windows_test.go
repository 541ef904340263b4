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

package parsers_test

import (
	. "gopkg.in/check.v1"

	"github.com/some100/bootmgr-go/config"
	"github.com/some100/bootmgr-go/config/parsers"
	"github.com/some100/bootmgr-go/efi/efimock"
)

type detectSuite struct{}

var _ = Suite(&detectSuite{})

func (s *detectSuite) TestOSXParserDetectsBootEfi(c *C) {
	fw := efimock.New()
	h := fw.AddVolume(&efimock.Volume{
		Files: map[string][]byte{`\System\Library\CoreServices\boot.efi`: []byte("stub")},
	})
	fs, _ := fw.OpenFilesystem(h)

	out := (&parsers.OSXParser{}).Parse(fw, h, fs, config.ArchX64, nil)
	c.Assert(out, HasLen, 1)
	c.Check(out[0].Title, Equals, "macOS")
	c.Check(out[0].Origin, Equals, config.OriginOSX)
}

func (s *detectSuite) TestOSXParserAbsent(c *C) {
	fw := efimock.New()
	h := fw.AddVolume(&efimock.Volume{Files: map[string][]byte{}})
	fs, _ := fw.OpenFilesystem(h)

	out := (&parsers.OSXParser{}).Parse(fw, h, fs, config.ArchX64, nil)
	c.Check(out, HasLen, 0)
}

func (s *detectSuite) TestShellParserDetectsArchAppropriateBinary(c *C) {
	fw := efimock.New()
	h := fw.AddVolume(&efimock.Volume{
		Files: map[string][]byte{`\shellx64.efi`: []byte("stub")},
	})
	fs, _ := fw.OpenFilesystem(h)

	out := (&parsers.ShellParser{}).Parse(fw, h, fs, config.ArchX64, nil)
	c.Assert(out, HasLen, 1)
	c.Check(out[0].Title, Equals, "UEFI Shell")

	outAA64 := (&parsers.ShellParser{}).Parse(fw, h, fs, config.ArchAA64, nil)
	c.Check(outAA64, HasLen, 0)
}

func (s *detectSuite) TestWindowsParserFallsBackToDefaultTitleWithoutBCD(c *C) {
	fw := efimock.New()
	h := fw.AddVolume(&efimock.Volume{
		Files: map[string][]byte{`\EFI\Microsoft\Boot\bootmgfw.efi`: []byte("stub")},
	})
	fs, _ := fw.OpenFilesystem(h)

	out := (&parsers.WindowsParser{}).Parse(fw, h, fs, config.ArchX64, nil)
	c.Assert(out, HasLen, 1)
	c.Check(out[0].Title, Equals, "Windows Boot Manager")
	c.Check(out[0].Origin, Equals, config.OriginWindows)
}

func (s *detectSuite) TestWindowsParserAbsent(c *C) {
	fw := efimock.New()
	h := fw.AddVolume(&efimock.Volume{Files: map[string][]byte{}})
	fs, _ := fw.OpenFilesystem(h)

	out := (&parsers.WindowsParser{}).Parse(fw, h, fs, config.ArchX64, nil)
	c.Check(out, HasLen, 0)
}
