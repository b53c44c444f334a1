// Package blobstore keeps uploaded files in a flat directory on disk.
// Names are opaque to the store; callers pick them and hand them back.
package blobstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrInvalidName  = errors.New("invalid blob name")
)

// Disk stores blobs as files directly under root.
type Disk struct {
	root string
}

// NewDisk creates root if needed.
func NewDisk(root string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{root: root}, nil
}

// Dir is the directory blobs are written to.
func (d *Disk) Dir() string {
	return d.root
}

// Write stores r under name. Data goes to a pending file first and is
// renamed into place, so readers never see a partial blob.
func (d *Disk) Write(name string, r io.Reader) (int64, error) {
	destination, err := d.path(name)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(d.root, "pending-")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("storing failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}

	if err := os.Rename(tmp.Name(), destination); err != nil {
		return 0, fmt.Errorf("rename failed: %w", err)
	}
	return n, nil
}

// Delete removes name. A missing file yields ErrBlobNotFound.
func (d *Disk) Delete(name string) error {
	p, err := d.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return ErrBlobNotFound
		}
		return err
	}
	return nil
}

func (d *Disk) Exists(name string) (bool, error) {
	p, err := d.path(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// path confines name to the root directory.
func (d *Disk) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, "pending-") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(d.root, name), nil
}
