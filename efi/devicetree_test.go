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

package efi_test

import (
	"encoding/binary"

	efilib "github.com/canonical/go-efilib"
	. "gopkg.in/check.v1"

	"github.com/some100/bootmgr-go/config"
	efi "github.com/some100/bootmgr-go/efi"
	"github.com/some100/bootmgr-go/efi/efimock"
)

const fdtMagic uint32 = 0xd00dfeed

var devicetreeTableGUID = efilib.MakeGUID(0xb1b621d5, 0xf19c, 0x41a5, 0x830b, [...]uint8{0xd9, 0x15, 0x2c, 0x69, 0xaa, 0xe0})

type devicetreeSuite struct{}

var _ = Suite(&devicetreeSuite{})

func validFdtBlob(size int) []byte {
	blob := make([]byte, size)
	binary.BigEndian.PutUint32(blob[0:4], fdtMagic)
	binary.BigEndian.PutUint32(blob[4:8], uint32(size))
	return blob
}

func hostArch() string {
	return string(config.DetectHostArchitecture())
}

func (s *devicetreeSuite) TestStageDevicetreeRejectsTruncatedHeader(c *C) {
	fw := efimock.New()
	_, err := efi.StageDevicetree(fw, []byte{0, 1, 2}, hostArch())
	c.Check(err, NotNil)
}

func (s *devicetreeSuite) TestStageDevicetreeRejectsBadMagic(c *C) {
	fw := efimock.New()
	blob := validFdtBlob(16)
	blob[0] = 0xff
	_, err := efi.StageDevicetree(fw, blob, hostArch())
	c.Check(err, NotNil)
}

func (s *devicetreeSuite) TestStageDevicetreeRejectsArchMismatch(c *C) {
	fw := efimock.New()
	blob := validFdtBlob(16)

	mismatched := "arm"
	if hostArch() == "arm" {
		mismatched = "aa64"
	}

	_, err := efi.StageDevicetree(fw, blob, mismatched)
	c.Check(err, Equals, efi.ErrArchMismatch)

	_, ok := fw.ConfigTable(devicetreeTableGUID)
	c.Check(ok, Equals, false)
}

func (s *devicetreeSuite) TestStageDevicetreeInstallsAndReleaseUninstalls(c *C) {
	fw := efimock.New()
	blob := validFdtBlob(16)

	guard, err := efi.StageDevicetree(fw, blob, hostArch())
	c.Assert(err, IsNil)

	installed, ok := fw.ConfigTable(devicetreeTableGUID)
	c.Assert(ok, Equals, true)
	c.Check(installed, DeepEquals, blob)

	c.Assert(guard.Release(), IsNil)
	_, ok = fw.ConfigTable(devicetreeTableGUID)
	c.Check(ok, Equals, false)
}

func (s *devicetreeSuite) TestStageDevicetreeAcceptsUntaggedEntry(c *C) {
	fw := efimock.New()
	blob := validFdtBlob(16)

	// An entry with no explicit architecture tag (the common BLS case) must
	// still install on any host; StageDevicetree must not treat an empty
	// tag as a mismatch against the host's actual architecture.
	guard, err := efi.StageDevicetree(fw, blob, "")
	c.Assert(err, IsNil)
	defer guard.Release()

	installed, ok := fw.ConfigTable(devicetreeTableGUID)
	c.Assert(ok, Equals, true)
	c.Check(installed, DeepEquals, blob)
}

func (s *devicetreeSuite) TestReleaseTwiceFails(c *C) {
	fw := efimock.New()
	guard, err := efi.StageDevicetree(fw, validFdtBlob(16), hostArch())
	c.Assert(err, IsNil)
	c.Assert(guard.Release(), IsNil)
	c.Check(guard.Release(), Equals, efi.ErrGuardConsumed)
}
