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
	efi "github.com/some100/bootmgr-go/efi"
	"github.com/some100/bootmgr-go/efi/efimock"
)

type pxeSuite struct{}

var _ = Suite(&pxeSuite{})

func (s *pxeSuite) TestParsePxeNoOffer(c *C) {
	fw := efimock.New()
	_, ok := parsers.ParsePxe(fw)
	c.Check(ok, Equals, false)
}

func (s *pxeSuite) TestParsePxeBuildsTftpConfig(c *C) {
	fw := efimock.New()
	fw.SetPxeOffer(&efi.PxeOffer{ServerAddr: "10.0.0.1", BootFile: "pxelinux.0"})

	cfg, ok := parsers.ParsePxe(fw)
	c.Assert(ok, Equals, true)
	c.Check(cfg.Action, Equals, config.BootTftp)
	c.Check(cfg.Origin, Equals, config.OriginPxe)
	c.Check(string(cfg.EfiPath), Equals, "pxelinux.0")
	c.Check(cfg.Filename, Equals, "10.0.0.1")
}

func (s *pxeSuite) TestParsePxeRejectsHttpBoot(c *C) {
	fw := efimock.New()
	fw.SetPxeOffer(&efi.PxeOffer{ServerAddr: "10.0.0.1", BootFile: "http://10.0.0.1/boot.efi"})

	_, ok := parsers.ParsePxe(fw)
	c.Check(ok, Equals, false)
}
