// Package vault defines the notes-directory file-system abstraction.
package vault

import "time"

// NoteMeta is a lightweight descriptor for one markdown file in the vault.
type NoteMeta struct {
	Path     string // relative to the vault root
	Checksum string
	ModTime  time.Time
}

// Provider is the interface for vault file operations.
type Provider interface {
	// Root returns the absolute vault root path.
	Root() string
	// List returns metadata for every .md file under dir (relative to vault
	// root), skipping hidden directories.
	List(dir string) ([]NoteMeta, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Stat returns metadata for a single file at path (relative to vault root).
	Stat(path string) (NoteMeta, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to vault root).
	Delete(path string) error
}
