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
)

type configSuite struct{}

var _ = Suite(&configSuite{})

func (s *configSuite) TestPreferredTitlePrefersTitle(c *C) {
	cfg := Config{Title: "Ubuntu", Filename: "shimx64.efi"}
	c.Check(cfg.PreferredTitle(0), Equals, "Ubuntu")
}

func (s *configSuite) TestPreferredTitleFallsBackToFilename(c *C) {
	cfg := Config{Filename: "shimx64.efi"}
	c.Check(cfg.PreferredTitle(0), Equals, "shimx64.efi")
}

func (s *configSuite) TestPreferredTitleFallsBackToUnknown(c *C) {
	cfg := Config{}
	c.Check(cfg.PreferredTitle(-1), Equals, "(unknown)")
}

func (s *configSuite) TestPreferredTitleFallsBackToIndexWhenFilenameEmpty(c *C) {
	cfg := Config{}
	c.Check(cfg.PreferredTitle(3), Equals, "3")
}

func (s *configSuite) TestPreferredTitleFilenameWinsOverIndex(c *C) {
	cfg := Config{Filename: "shimx64.efi"}
	c.Check(cfg.PreferredTitle(3), Equals, "shimx64.efi")
}

func (s *configSuite) TestPreferredTitleMarksBad(c *C) {
	cfg := Config{Title: "Ubuntu", Bad: true}
	c.Check(cfg.PreferredTitle(0), Equals, "[BAD] Ubuntu")
}

func (s *configSuite) TestCompareBadSortsLast(c *C) {
	good := Config{Title: "a"}
	bad := Config{Title: "b", Bad: true}
	c.Check(Compare(good, bad, ""), Equals, -1)
	c.Check(Compare(bad, good, ""), Equals, 1)
}

func (s *configSuite) TestCompareDefaultSortsFirst(c *C) {
	a := Config{Title: "aaa", SortKey: "aaa"}
	b := Config{Title: "zzz", SortKey: "zzz"}
	c.Check(Compare(a, b, "zzz") > 0, Equals, true)
	c.Check(Compare(b, a, "zzz") < 0, Equals, true)
}

func (s *configSuite) TestCompareEmptySortKeySortsLast(c *C) {
	withKey := Config{Title: "a", SortKey: "linux"}
	withoutKey := Config{Title: "b"}
	c.Check(Compare(withKey, withoutKey, "") < 0, Equals, true)
}

func (s *configSuite) TestCompareFallsBackToTitleThenOriginThenFilename(c *C) {
	a := Config{Title: "Ubuntu", Origin: OriginBLS, Filename: "a.conf"}
	b := Config{Title: "Ubuntu", Origin: OriginUKI, Filename: "b.efi"}
	c.Check(Compare(a, b, "") < 0, Equals, true)
}

func (s *configSuite) TestCompareIsTotalAndDeterministic(c *C) {
	entries := []Config{
		{Title: "Windows", SortKey: "windows", Origin: OriginWindows},
		{Title: "Ubuntu", SortKey: "ubuntu", Origin: OriginBLS},
		{Title: "macOS", SortKey: "macos", Origin: OriginOSX},
		{Bad: true, Title: "Broken", SortKey: "broken"},
		{Title: "UEFI Shell", SortKey: "shell", Origin: OriginShell},
	}
	for _, a := range entries {
		for _, b := range entries {
			ab := Compare(a, b, "ubuntu")
			ba := Compare(b, a, "ubuntu")
			if ab == 0 {
				c.Check(ba, Equals, 0)
			} else {
				c.Check((ab < 0) != (ba < 0), Equals, true)
			}
		}
	}
}
