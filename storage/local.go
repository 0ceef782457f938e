package storage

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalFile describes a file written by LocalDisk.
type LocalFile struct {
	Filename string
	Path     string
	URL      string
}

// LocalDisk keeps prescription files under <root>/prescriptions, served at /uploads/prescriptions.
type LocalDisk struct {
	dir string
	now func() time.Time
}

func NewLocalDisk(root string) *LocalDisk {
	return &LocalDisk{dir: filepath.Join(root, PrescriptionFolder), now: time.Now}
}

func (d *LocalDisk) Dir() string { return d.dir }

func LocalURL(filename string) string {
	return "/uploads/" + PrescriptionFolder + "/" + filename
}

func (d *LocalDisk) Save(data []byte, originalName string) (LocalFile, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return LocalFile{}, fmt.Errorf("local storage: mkdir %s: %w", d.dir, err)
	}
	ext := strings.ToLower(filepath.Ext(originalName))
	name := fmt.Sprintf("prescription-%d-%d%s", d.now().UnixMilli(), rand.Intn(1e9), ext)
	path := filepath.Join(d.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return LocalFile{}, fmt.Errorf("local storage: write %s: %w", name, err)
	}
	return LocalFile{Filename: name, Path: path, URL: LocalURL(name)}, nil
}

func (d *LocalDisk) Read(filename string) ([]byte, error) {
	path, err := d.resolve(filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("local storage: read %s: %w", filename, err)
	}
	return data, nil
}

func (d *LocalDisk) Remove(filename string) error {
	path, err := d.resolve(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("local storage: remove %s: %w", filename, err)
	}
	return nil
}

func (d *LocalDisk) resolve(filename string) (string, error) {
	base := filepath.Base(filename)
	if base != filename || base == "." || base == ".." {
		return "", fmt.Errorf("local storage: invalid filename %q", filename)
	}
	return filepath.Join(d.dir, base), nil
}
