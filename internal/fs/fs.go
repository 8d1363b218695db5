// Package fs provides the filesystem seam between the router and the disk.
//
// The main types are:
//   - [FS]: interface for the file operations the router needs
//   - [Real]: production implementation using the [os] package
//
// The cache store and the local registry variant both go through [FS], so
// tests can point them at a temp directory and corruption scenarios can be
// staged with plain file writes.
package fs

import "os"

// FS defines the filesystem operations used by the cache store and the
// local registry mirror.
//
// All methods mirror their [os] package equivalents. WriteFileAtomic is the
// exception: it writes through a temp file and renames, so readers never
// observe a torn file.
type FS interface {
	// ReadFile reads an entire file into memory. See [os.ReadFile].
	ReadFile(path string) ([]byte, error)

	// WriteFileAtomic writes data to a file atomically (temp + rename).
	// Concurrent writers race safely; the last rename wins.
	WriteFileAtomic(path string, data []byte, perm os.FileMode) error

	// ReadDir reads a directory and returns its entries sorted by name.
	// See [os.ReadDir].
	ReadDir(path string) ([]os.DirEntry, error)

	// MkdirAll creates a directory and all parents. See [os.MkdirAll].
	MkdirAll(path string, perm os.FileMode) error

	// Stat returns file info. See [os.Stat].
	Stat(path string) (os.FileInfo, error)

	// Remove removes a file. See [os.Remove].
	Remove(path string) error
}
