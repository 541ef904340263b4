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
	"errors"

	. "gopkg.in/check.v1"

	efi "github.com/some100/bootmgr-go/efi"
	"github.com/some100/bootmgr-go/efi/efimock"
)

type fsSuite struct{}

var _ = Suite(&fsSuite{})

func (s *fsSuite) TestReadMissingFileIsKindNotFound(c *C) {
	fw := efimock.New()
	h := fw.AddVolume(&efimock.Volume{Files: map[string][]byte{}})
	fs, err := fw.OpenFilesystem(h)
	c.Assert(err, IsNil)

	_, err = fs.Read(`\missing`)
	var fsErr *efi.FsError
	c.Assert(errors.As(err, &fsErr), Equals, true)
	c.Check(fsErr.Kind, Equals, efi.KindNotFound)
}

func (s *fsSuite) TestReadOversizeFileIsKindReadTooLarge(c *C) {
	fw := efimock.New()
	h := fw.AddVolume(&efimock.Volume{
		Files: map[string][]byte{`\big`: make([]byte, efi.MaxReadSize+1)},
	})
	fs, err := fw.OpenFilesystem(h)
	c.Assert(err, IsNil)

	_, err = fs.Read(`\big`)
	c.Assert(err, NotNil)
	var fsErr *efi.FsError
	c.Assert(errors.As(err, &fsErr), Equals, true)
	c.Check(fsErr.Kind, Equals, efi.KindReadTooLarge)
}

func (s *fsSuite) TestReadInvalidPathIsKindInvalidPath(c *C) {
	fw := efimock.New()
	h := fw.AddVolume(&efimock.Volume{Files: map[string][]byte{}})
	fs, err := fw.OpenFilesystem(h)
	c.Assert(err, IsNil)

	_, err = fs.Read("bad\x00path")
	var fsErr *efi.FsError
	c.Assert(errors.As(err, &fsErr), Equals, true)
	c.Check(fsErr.Kind, Equals, efi.KindInvalidPath)
}
