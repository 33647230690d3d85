package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lee-lindley/app-csv-pkg/pkg/csverr"
)

// Directory is a pre-authorized location that file exports are confined to.
type Directory struct {
	base string // Absolute base directory
}

// NewDirectory creates base if needed and returns a directory rooted at it.
func NewDirectory(base string) (*Directory, error) {
	if base == "" {
		base = "./exports"
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve export directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &Directory{base: abs}, nil
}

// Path returns the absolute base directory.
func (d *Directory) Path() string {
	return d.base
}

// Resolve returns the absolute path of name inside the directory. Names that are empty,
// absolute or escape the directory are rejected.
func (d *Directory) Resolve(name string) (string, error) {
	// Sanitize file name to prevent directory traversal
	cleanName := filepath.Clean(name)
	if name == "" || cleanName == "." || strings.HasPrefix(cleanName, "..") || filepath.IsAbs(cleanName) {
		return "", csverr.NewInvalidOptions("fileName", fmt.Sprintf("invalid file name: %q", name))
	}

	path := filepath.Join(d.base, cleanName)
	rel, err := filepath.Rel(d.base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", csverr.NewInvalidOptions("fileName", fmt.Sprintf("file name escapes the export directory: %q", name))
	}
	return path, nil
}

// Create opens a new file export named name. Nothing is visible under name until the
// returned file is committed.
func (d *Directory) Create(name string, opts FileOptions) (*File, error) {
	path, err := d.Resolve(name)
	if err != nil {
		return nil, err
	}

	if !opts.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return nil, csverr.NewInvalidOptions("fileName", fmt.Sprintf("file %q already exists", name))
		}
	}

	// Ensure parent directory exists for nested paths
	if dir := filepath.Dir(path); dir != d.base {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	return createFile(path, opts)
}

// ExportFile represents a committed file in the directory.
type ExportFile struct {
	Name         string // Relative to the directory, slash separated
	Size         int64
	ModifiedTime time.Time
}

// List lists committed files, optionally filtered by a glob pattern on the base name.
// Uncommitted temporary files are skipped.
func (d *Directory) List(pattern string) ([]ExportFile, error) {
	if pattern != "" {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, csverr.NewInvalidOptions("pattern", fmt.Sprintf("invalid pattern %q", pattern))
		}
	}

	var files []ExportFile
	err := filepath.Walk(d.base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		if info.IsDir() || isTempName(info.Name()) {
			return nil
		}

		relPath, err := filepath.Rel(d.base, path)
		if err != nil {
			return err
		}

		if pattern != "" {
			if matched, _ := filepath.Match(pattern, info.Name()); !matched {
				return nil
			}
		}

		files = append(files, ExportFile{
			Name:         filepath.ToSlash(relPath),
			Size:         info.Size(),
			ModifiedTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

// Remove deletes a committed file.
func (d *Directory) Remove(name string) error {
	path, err := d.Resolve(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file %s not found: %w", name, os.ErrNotExist)
		}
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

func isTempName(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, tempSuffix)
}
