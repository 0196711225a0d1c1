// Package session manages persisted session slots and drives the QR
// authorization flow against a transport client.
package session

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const fileExt = ".session"

// EnsureStorage creates the sessions directory if it does not exist.
func EnsureStorage(dir string) error {
	return os.MkdirAll(dir, 0o700)
}

// Path returns the on-disk path of a named session slot.
func Path(dir, name string) string {
	return filepath.Join(dir, name+fileExt)
}

// List returns the names of all session slots in dir, sorted. A missing
// directory is an empty registry, not an error.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if !strings.HasSuffix(n, fileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(n, fileExt))
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a session slot. Deleting a slot that does not exist is a
// no-op; transports may keep sidecar files next to the slot, those are
// removed best-effort.
func Delete(dir, name string) error {
	path := Path(dir, name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	// Sidecars (journals etc.) share the slot path as prefix.
	matches, _ := filepath.Glob(path + "-*")
	for _, m := range matches {
		_ = os.Remove(m)
	}
	return nil
}

// Exists reports whether a named slot is present on disk.
func Exists(dir, name string) bool {
	_, err := os.Stat(Path(dir, name))
	return err == nil
}
