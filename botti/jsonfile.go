package botti

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DataPath joins path elements under the configured data directory.
func (b *Bot) DataPath(elem ...string) string {
	return filepath.Join(append([]string{b.Cfg.Bot.DataDir}, elem...)...)
}

// LoadJSON reads a JSON sidecar file into dest. A missing file leaves
// dest untouched and is not an error.
func LoadJSON(path string, dest any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err = json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// SaveJSON writes v to a JSON sidecar file through a temp file so a
// crash mid-write cannot truncate the previous state.
func SaveJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err = os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
