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
	"strings"

	"golang.org/x/xerrors"
)

// MaxReadSize is the largest file this package will read into memory in one
// call, matching the teacher's (and the original source's) defensive cap on
// single-file reads. A backend that can tell a file's size before reading
// it (hostfw's dirBackend) rejects an oversized file outright instead of
// reading it in just to discard it; a backend that cannot (efimock's
// in-memory volumeBackend) at least refuses to hand back more than the cap.
const MaxReadSize = 1024 * 1024 * 1024

// FsErrorKind classifies why a filesystem operation failed, matching the
// taxonomy original source's FsError enum exposes to callers that need to
// distinguish "missing" from "broken" from "too big".
type FsErrorKind int

const (
	KindUnknown FsErrorKind = iota
	KindNotFound
	KindPermissionDenied
	KindInvalidPath
	KindDeviceError
	KindReadTooLarge
)

func (k FsErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindPermissionDenied:
		return "permission denied"
	case KindInvalidPath:
		return "invalid path"
	case KindDeviceError:
		return "device error"
	case KindReadTooLarge:
		return "read too large"
	default:
		return "unknown"
	}
}

// FsError is returned for every filesystem operation that fails, wrapping
// the firmware's own error, naming the step that failed, and classifying
// the failure into Kind so a caller can react without string-matching.
type FsError struct {
	Op   string
	Path string
	Kind FsErrorKind
	Err  error
}

func (e *FsError) Error() string {
	if e.Path == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *FsError) Unwrap() error { return e.Err }

// ErrNotExist is returned (wrapped in an *FsError) when a path does not
// resolve to an existing file or directory.
var ErrNotExist = errors.New("file does not exist")

// ErrPermissionDenied is returned (wrapped in an *FsError) when the backend
// refuses a read or directory listing for lack of access.
var ErrPermissionDenied = errors.New("permission denied")

// ErrReadTooLarge is returned (wrapped in an *FsError) when a file's size
// exceeds MaxReadSize.
var ErrReadTooLarge = errors.New("file exceeds maximum read size")

// ErrInvalidPath is returned (wrapped in an *FsError) when a path fails
// ValidPath before it ever reaches the backend.
var ErrInvalidPath = errors.New("invalid path")

// kindForErr classifies a backend error into the FsErrorKind taxonomy.
// Anything the backend didn't tag with one of the known sentinels is
// reported as a generic device error, matching original source's catch-all
// FsError::Other.
func kindForErr(err error) FsErrorKind {
	switch {
	case errors.Is(err, ErrNotExist):
		return KindNotFound
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrReadTooLarge):
		return KindReadTooLarge
	case errors.Is(err, ErrInvalidPath):
		return KindInvalidPath
	default:
		return KindDeviceError
	}
}

// DirEntry describes one entry returned by Filesystem.ReadDir.
type DirEntry struct {
	Name  string
	IsDir bool
	Size  int64
}

// filesystemBackend is the narrow per-handle capability a Firmware
// implementation exposes; Filesystem wraps one to provide the higher-level,
// string-path API the rest of the tree uses.
type filesystemBackend interface {
	Exists(path string) bool
	Read(path string) ([]byte, error)
	ReadDir(path string) ([]DirEntry, error)
	VolumeLabel() (string, error)
}

// Filesystem is a convenience wrapper around one firmware-opened volume,
// translating UEFI's directory-handle protocol into plain string-keyed
// operations. Grounded on the teacher's Image/ImageReader split
// (efi/image.go) and on the original source's UefiFileSystem helper, which
// this package deliberately mirrors method-for-method.
type Filesystem struct {
	handle  Handle
	backend filesystemBackend
}

// NewFilesystem wraps backend as the Filesystem for handle. Firmware
// implementations call this from OpenFilesystem; it is not normally called
// directly by application code.
func NewFilesystem(handle Handle, backend filesystemBackend) *Filesystem {
	return &Filesystem{handle: handle, backend: backend}
}

// Handle returns the underlying firmware handle this filesystem was opened
// from.
func (fs *Filesystem) Handle() Handle { return fs.handle }

// Exists reports whether path names an existing file or directory. It makes
// no distinction between "does not exist" and "could not be verified to
// exist" — both report false, matching the original source's UefiFileSystem.exists.
func (fs *Filesystem) Exists(path string) bool {
	return fs.backend.Exists(NormalizePath(path))
}

// Read returns the entire contents of the file at path. A file larger than
// MaxReadSize is refused with a KindReadTooLarge FsError rather than read.
func (fs *Filesystem) Read(path string) ([]byte, error) {
	norm := NormalizePath(path)
	if !ValidPath(norm) {
		return nil, &FsError{Op: "read", Path: norm, Kind: KindInvalidPath, Err: ErrInvalidPath}
	}
	data, err := fs.backend.Read(norm)
	if err != nil {
		return nil, xerrors.Errorf("cannot read %s: %w", norm, &FsError{Op: "read", Path: norm, Kind: kindForErr(err), Err: err})
	}
	if len(data) > MaxReadSize {
		return nil, &FsError{Op: "read", Path: norm, Kind: KindReadTooLarge, Err: ErrReadTooLarge}
	}
	return data, nil
}

// ReadInto reads the whole file at path into buf, returning the number of
// bytes read. It reads nothing and returns an error if buf is smaller than the
// file's reported size, or if the file exceeds MaxReadSize.
func (fs *Filesystem) ReadInto(path string, buf []byte) (int, error) {
	norm := NormalizePath(path)
	if !ValidPath(norm) {
		return 0, &FsError{Op: "read", Path: norm, Kind: KindInvalidPath, Err: ErrInvalidPath}
	}
	data, err := fs.backend.Read(norm)
	if err != nil {
		return 0, xerrors.Errorf("cannot read %s: %w", norm, &FsError{Op: "read", Path: norm, Kind: kindForErr(err), Err: err})
	}
	if len(data) > MaxReadSize {
		return 0, &FsError{Op: "read", Path: norm, Kind: KindReadTooLarge, Err: ErrReadTooLarge}
	}
	if len(data) > len(buf) {
		return 0, &FsError{Op: "read", Path: norm, Kind: KindDeviceError, Err: xerrors.Errorf("buffer too small (need %d bytes)", len(data))}
	}
	copy(buf, data)
	return len(data), nil
}

// ReadDir lists the entries of the directory at path, in the order and with
// the entries the backend returns; this wrapper neither sorts nor filters
// them.
func (fs *Filesystem) ReadDir(path string) ([]DirEntry, error) {
	norm := NormalizePath(path)
	if !ValidPath(norm) {
		return nil, &FsError{Op: "readdir", Path: norm, Kind: KindInvalidPath, Err: ErrInvalidPath}
	}
	entries, err := fs.backend.ReadDir(norm)
	if err != nil {
		return nil, xerrors.Errorf("cannot read dir %s: %w", norm, &FsError{Op: "readdir", Path: norm, Kind: kindForErr(err), Err: err})
	}
	return entries, nil
}

// VolumeLabel returns the volume's label, if the underlying firmware
// protocol supports reporting one.
func (fs *Filesystem) VolumeLabel() (string, error) {
	label, err := fs.backend.VolumeLabel()
	if err != nil {
		return "", xerrors.Errorf("cannot get volume label: %w", &FsError{Op: "volumelabel", Kind: kindForErr(err), Err: err})
	}
	return label, nil
}

// NormalizePath rewrites a forward-slash path into the backslash-separated
// form UEFI firmware paths use, matching normalize_path in the original
// source's helper module. It is exported because config/types.go's EfiPath
// and DevicetreePath constructors call it before validating.
func NormalizePath(path string) string {
	return strings.ReplaceAll(path, "/", "\\")
}

// ValidPath reports whether path is well-formed for use as a UEFI file path:
// non-empty, free of NUL bytes and the ASCII control characters firmware
// path components disallow, and not containing a ".." traversal component.
// Mirrors original source's check_path_valid.
func ValidPath(path string) bool {
	if path == "" {
		return false
	}
	for _, r := range path {
		if r == 0 || r < 0x20 {
			return false
		}
	}
	for _, part := range strings.Split(strings.ReplaceAll(path, "/", "\\"), "\\") {
		if part == ".." {
			return false
		}
	}
	return true
}
