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

// Command bootmgr lists and loads boot entries discovered from a set of
// mounted directories standing in for UEFI filesystem volumes, using
// efi/hostfw as the Firmware implementation. Grounded on the teacher's
// cmd/test_fde_compat options-struct/go-flags idiom (cmd/test_fde_compat/main.go).
package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/some100/bootmgr-go/bootmgr"
	efi "github.com/some100/bootmgr-go/efi"
	"github.com/some100/bootmgr-go/efi/hostfw"
)

type options struct {
	Mounts  []string `short:"m" long:"mount" description:"Directory standing in for a mounted UEFI filesystem volume; repeatable" required:"true"`
	PxeIf   string   `long:"pxe-iface" description:"Network interface to DHCP-discover a PXE boot offer on"`
	Load    int      `short:"l" long:"load" description:"Load the entry at this index instead of only listing entries" default:"-1"`
	Verbose bool     `short:"v" long:"verbose" description:"Log parser and loader diagnostics to stderr"`
}

var opts options

func run() error {
	if _, err := flags.Parse(&opts); err != nil {
		return err
	}

	fw := hostfw.New()
	for _, dir := range opts.Mounts {
		fw.AddMount(dir)
	}
	if opts.PxeIf != "" {
		fw.PxeOfferFunc = func() (*efi.PxeOffer, bool, error) {
			return hostfw.DiscoverPxeOffer(opts.PxeIf)
		}
	}

	mgr, err := bootmgr.New(fw)
	if err != nil {
		return fmt.Errorf("discovering boot entries: %w", err)
	}

	entries := mgr.List()
	for i, c := range entries {
		marker := "  "
		if i == mgr.DefaultIndex() {
			marker = "* "
		}
		title, _ := mgr.PreferredTitle(i)
		fmt.Printf("%s[%d] %s (%s)\n", marker, i, title, c.Origin)
	}

	if opts.Load < 0 {
		return nil
	}

	res, err := mgr.Load(opts.Load)
	if err != nil {
		return fmt.Errorf("loading entry %d: %w", opts.Load, err)
	}
	if res.Devicetree != nil {
		defer res.Devicetree.Release()
	}
	fmt.Printf("loaded image handle %v\n", res.Image)
	return nil
}

func main() {
	if err := run(); err != nil {
		switch e := err.(type) {
		case *flags.Error:
			if e.Type != flags.ErrHelp {
				os.Exit(1)
			}
		default:
			fmt.Fprintln(os.Stderr, "bootmgr:", err)
			os.Exit(1)
		}
	}
}
