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

package parsers

import (
	. "gopkg.in/check.v1"
)

type ukiSuite struct{}

var _ = Suite(&ukiSuite{})

func (s *ukiSuite) TestParseOsrelStripsQuotesAndIgnoresUnknownKeys(c *C) {
	content := []byte("NAME=\"Ubuntu\"\n" +
		"ID=ubuntu\n" +
		"PRETTY_NAME=\"Ubuntu 24.04 LTS\"\n" +
		"VERSION_ID=\"24.04\"\n" +
		"HOME_URL=\"https://ubuntu.com/\"\n")
	rel := parseOsrel(content)
	c.Check(rel.name, Equals, "Ubuntu")
	c.Check(rel.id, Equals, "ubuntu")
	c.Check(rel.prettyName, Equals, "Ubuntu 24.04 LTS")
	c.Check(rel.versionID, Equals, "24.04")
}

func (s *ukiSuite) TestParseOsrelIgnoresBlankAndMalformedLines(c *C) {
	content := []byte("\nNOEQUALSSIGN\nID=arch\n")
	rel := parseOsrel(content)
	c.Check(rel.id, Equals, "arch")
}

func (s *ukiSuite) TestFirstNonEmptyPicksFirstSetValue(c *C) {
	c.Check(firstNonEmpty("", "", "third", "fourth"), Equals, "third")
	c.Check(firstNonEmpty("", "", ""), Equals, "")
}

func (s *ukiSuite) TestNormalizeCmdlineCollapsesWhitespace(c *C) {
	c.Check(normalizeCmdline([]byte("quiet   splash\n")), Equals, "quiet splash")
	c.Check(normalizeCmdline([]byte("root=/dev/sda1\nrw\tconsole=ttyS0")), Equals, "root=/dev/sda1 rw console=ttyS0")
	c.Check(normalizeCmdline([]byte("  \n\t  ")), Equals, "")
}
