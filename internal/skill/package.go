package skill

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Well-known file names inside a skill package directory.
const (
	CodeFile     = "skill.star"
	ManifestFile = "skill.json"
)

// Package is a generated candidate skill: source, manifest, and any
// test files the generator produced. Immutable once produced.
type Package struct {
	Name     string
	Code     string
	Manifest *Manifest
	Tests    map[string]string
}

// Dir returns the canonical package directory for a skill version under
// a staging or production root: <root>/<name>/<version>.
func Dir(root, name, version string) string {
	return filepath.Join(root, name, version)
}

// WriteDir materializes the package under <root>/<name>/<version> and
// returns the package directory.
func (p *Package) WriteDir(root, version string) (string, error) {
	dir := Dir(root, p.Name, version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating package dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, CodeFile), []byte(p.Code), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", CodeFile, err)
	}

	raw, err := json.MarshalIndent(p.Manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), raw, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", ManifestFile, err)
	}

	for name, content := range p.Tests {
		if err := os.WriteFile(filepath.Join(dir, filepath.Base(name)), []byte(content), 0o644); err != nil {
			return "", fmt.Errorf("writing test file %s: %w", name, err)
		}
	}

	return dir, nil
}

// ReadDir loads a skill package back from a package directory.
func ReadDir(dir string) (*Package, error) {
	code, err := os.ReadFile(filepath.Join(dir, CodeFile))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", CodeFile, err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ManifestFile, err)
	}
	manifest, err := ParseManifest(raw)
	if err != nil {
		return nil, err
	}

	return &Package{
		Name:     manifest.Name,
		Code:     string(code),
		Manifest: manifest,
	}, nil
}

// CopyDir copies a package directory tree (flat: a skill package has no
// subdirectories) from src to dst, replacing dst if it already exists.
func CopyDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("reading package dir: %w", err)
	}
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(src, e.Name()))
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dst, e.Name()), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
