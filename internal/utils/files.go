package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir ensures the provided directory exists.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// SafeWriteFile writes data to a temp file and atomically renames it into place.
func SafeWriteFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// PrettyJSON marshals a value as indented JSON.
func PrettyJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return b, nil
}

// UniqueOutputPath returns dir/<base><suffix>, adding __2, __3 ... to base
// until the name is not in taken. The chosen name is recorded in taken.
func UniqueOutputPath(dir, source, suffix string, taken map[string]bool) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	name := base + suffix
	for i := 2; taken[name]; i++ {
		name = fmt.Sprintf("%s__%d%s", base, i, suffix)
	}
	taken[name] = true
	return filepath.Join(dir, name)
}
