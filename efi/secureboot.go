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

import (
	"errors"
	"sync"

	"golang.org/x/xerrors"
)

// SecureBootError values are returned (wrapped) by the security override.
var (
	ErrShimAbsent       = errors.New("the Shim image-verification protocol is not present")
	ErrAlreadyInstalled = errors.New("a security override is already installed")
	ErrNotInstalled     = errors.New("no security override is currently installed")
)

// securityOverrideInUse is the process-wide single-cell flag guarding
// "at most one SecurityOverrideGuard may exist at a time". Grounded on
// original source's SecurityOverrideInner, which is a single instance owned
// by the boot manager's state; this package makes that ownership explicit
// and mutex-guarded rather than trusting a single-threaded caller, per
// SPEC_FULL.md §5's documented departure from the source's "no lock
// discipline" runtime model.
var (
	securityOverrideMu    sync.Mutex
	securityOverrideInUse bool
)

// SecurityOverrideGuard represents one installed (or intentionally
// no-op) delegation of image verification to Shim. Unlike a
// "install once, forever" design, this guard supports a repeatable
// {Uninstalled→Installed→Uninstalled} cycle: Release always returns the
// process to the Uninstalled state, after which AcquireSecurityOverride may
// succeed again.
type SecurityOverrideGuard struct {
	fw       Firmware
	shim     ShimProtocol
	noop     bool
	original SecurityHandlers
	released bool
}

// AcquireSecurityOverride locates fw's Shim image-verification protocol and,
// if it is present, saves the SECURITY_ARCH/SECURITY2_ARCH handlers so
// Release can restore them exactly, then replaces them with an empty
// SecurityHandlers value. No handler that calls Shim is placed in the
// firmware table; Shim is consulted only through the guard's Verify. If
// Shim is not present, a non-nil guard is still returned, but Noop() reports
// true and Release is a cheap no-op — Shim absence is a normal, non-
// exceptional code path, matching the teacher's treatment of optional
// protocols throughout efi/shim.go.
//
// A second call to AcquireSecurityOverride without an intervening Release
// returns ErrAlreadyInstalled.
func AcquireSecurityOverride(fw Firmware) (*SecurityOverrideGuard, error) {
	securityOverrideMu.Lock()
	defer securityOverrideMu.Unlock()

	if securityOverrideInUse {
		return nil, ErrAlreadyInstalled
	}

	shim, ok, err := fw.ShimProtocol()
	if err != nil {
		return nil, xerrors.Errorf("cannot locate shim protocol: %w", err)
	}
	if !ok {
		securityOverrideInUse = true
		return &SecurityOverrideGuard{fw: fw, noop: true}, nil
	}

	original, err := fw.SecurityArchHandlers()
	if err != nil {
		return nil, xerrors.Errorf("cannot read security arch handlers: %w", err)
	}

	if err := fw.SetSecurityArchHandlers(SecurityHandlers{}); err != nil {
		return nil, xerrors.Errorf("cannot install security override: %w", err)
	}

	securityOverrideInUse = true
	return &SecurityOverrideGuard{fw: fw, shim: shim, original: original}, nil
}

// Noop reports whether this guard installed nothing because Shim was not
// present when it was acquired.
func (g *SecurityOverrideGuard) Noop() bool { return g.noop }

// Verify delegates image verification to the installed Shim protocol. It
// returns ErrShimAbsent if this guard is a no-op.
func (g *SecurityOverrideGuard) Verify(path DevicePath, data []byte) error {
	if g.shim == nil {
		return ErrShimAbsent
	}
	return g.shim.Verify(path, data)
}

// Release restores the SECURITY_ARCH/SECURITY2_ARCH handlers that were
// installed before Acquire, and frees the process-wide slot so a later
// AcquireSecurityOverride can succeed. Calling Release more than once
// returns ErrNotInstalled.
func (g *SecurityOverrideGuard) Release() error {
	securityOverrideMu.Lock()
	defer securityOverrideMu.Unlock()

	if g.released {
		return ErrNotInstalled
	}
	g.released = true
	securityOverrideInUse = false

	if g.noop {
		return nil
	}
	if err := g.fw.SetSecurityArchHandlers(g.original); err != nil {
		return xerrors.Errorf("cannot restore security arch handlers: %w", err)
	}
	return nil
}
