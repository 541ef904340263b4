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
	. "gopkg.in/check.v1"

	efi "github.com/some100/bootmgr-go/efi"
	"github.com/some100/bootmgr-go/efi/efimock"
)

type secureBootSuite struct{}

var _ = Suite(&secureBootSuite{})

func (s *secureBootSuite) TestAcquireWithoutShimIsNoop(c *C) {
	fw := efimock.New()
	guard, err := efi.AcquireSecurityOverride(fw)
	c.Assert(err, IsNil)
	c.Check(guard.Noop(), Equals, true)
	c.Check(guard.Verify(efi.DevicePath{}, nil), Equals, efi.ErrShimAbsent)
	c.Assert(guard.Release(), IsNil)
}

func (s *secureBootSuite) TestAcquireInstallsAndReleaseRestoresHandlers(c *C) {
	fw := efimock.New()
	fw.SetShimPresent(true, nil)

	original := efi.SecurityHandlers{Security: 0x1000, Security2: 0x2000}
	c.Assert(fw.SetSecurityArchHandlers(original), IsNil)

	guard, err := efi.AcquireSecurityOverride(fw)
	c.Assert(err, IsNil)
	c.Check(guard.Noop(), Equals, false)

	installed, err := fw.SecurityArchHandlers()
	c.Assert(err, IsNil)
	c.Check(installed, Not(Equals), original)

	c.Assert(guard.Release(), IsNil)
	restored, err := fw.SecurityArchHandlers()
	c.Assert(err, IsNil)
	c.Check(restored, Equals, original)
}

func (s *secureBootSuite) TestSecondAcquireWithoutReleaseFails(c *C) {
	fw := efimock.New()
	guard, err := efi.AcquireSecurityOverride(fw)
	c.Assert(err, IsNil)
	defer guard.Release()

	_, err = efi.AcquireSecurityOverride(fw)
	c.Check(err, Equals, efi.ErrAlreadyInstalled)
}

func (s *secureBootSuite) TestAcquireSucceedsAgainAfterRelease(c *C) {
	fw := efimock.New()
	guard, err := efi.AcquireSecurityOverride(fw)
	c.Assert(err, IsNil)
	c.Assert(guard.Release(), IsNil)

	guard2, err := efi.AcquireSecurityOverride(fw)
	c.Assert(err, IsNil)
	c.Assert(guard2.Release(), IsNil)
}

func (s *secureBootSuite) TestDoubleReleaseFails(c *C) {
	fw := efimock.New()
	guard, err := efi.AcquireSecurityOverride(fw)
	c.Assert(err, IsNil)
	c.Assert(guard.Release(), IsNil)
	c.Check(guard.Release(), Equals, efi.ErrNotInstalled)
}

func (s *secureBootSuite) TestVerifyDelegatesToShim(c *C) {
	fw := efimock.New()
	called := false
	fw.SetShimPresent(true, func(path efi.DevicePath, data []byte) error {
		called = true
		return nil
	})

	guard, err := efi.AcquireSecurityOverride(fw)
	c.Assert(err, IsNil)
	defer guard.Release()

	c.Assert(guard.Verify(efi.DevicePath{}, []byte("data")), IsNil)
	c.Check(called, Equals, true)
}
