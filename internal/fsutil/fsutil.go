// Package fsutil provides scoped filesystem helpers shared by the host
// controller and the in-container agent: path existence checks, recursive
// directory creation, and atomic JSON/YAML read/write.
package fsutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// EnsureDir creates dir (and parents) if it does not already exist.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// PathExists reports whether path exists, following symlinks.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsExecutable reports whether path is a regular file with any execute bit set.
func IsExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return info.Mode()&0o111 != 0
}

// WriteJSONAtomic marshals v as indented JSON and writes it to path by
// writing to a sibling temp file and renaming over the destination, so
// readers never observe a partially written file.
func WriteJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return writeAtomic(path, data)
}

// ReadJSON unmarshals path into v. If path does not exist, def is written
// into *v (via JSON round-trip) and nil is returned, so callers can supply
// a default shape rather than special-casing "first run".
func ReadJSON(path string, v interface{}, def interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if def == nil {
				return nil
			}
			db, mErr := json.Marshal(def)
			if mErr != nil {
				return mErr
			}
			return json.Unmarshal(db, v)
		}
		return err
	}
	return json.Unmarshal(data, v)
}

// WriteYAMLAtomic is the YAML sibling of WriteJSONAtomic.
func WriteYAMLAtomic(path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// ReadYAML unmarshals the YAML document at path into v.
func ReadYAML(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}

// WriteFileAtomic writes raw bytes to path via a sibling temp file + rename.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func writeAtomic(path string, data []byte) error {
	return WriteFileAtomic(path, data, 0o644)
}

// ListExecutableFiles returns the plain, executable files directly under
// dir, sorted ascending by filename. Subdirectories are ignored.
func ListExecutableFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		full := filepath.Join(dir, e.Name())
		if IsExecutable(full) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	result := make([]string, len(names))
	for i, n := range names {
		result[i] = filepath.Join(dir, n)
	}
	return result, nil
}

// ExpandHome replaces a leading "~" or "~/" in path with the given home
// directory. Paths not beginning with ~ are returned unchanged.
func ExpandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if len(path) >= 2 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
