package mountainforecast

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Entry maps a mountain name to its forecast page URL.
type Entry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Directory is the ordered list of mountains to scrape.
type Directory []Entry

// DirectoryFile persists a Directory as JSON so names are only looked up once.
type DirectoryFile struct {
	Path string
}

// Load reads the directory. A missing file returns (nil, nil): the caller
// builds the directory from scratch.
func (f DirectoryFile) Load() (Directory, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read url directory: %w", err)
	}

	var dir Directory
	if err := json.Unmarshal(data, &dir); err != nil {
		return nil, fmt.Errorf("decode url directory %s: %w", f.Path, err)
	}
	return dir, nil
}

// Save writes the directory, replacing any previous file.
func (f DirectoryFile) Save(dir Directory) error {
	data, err := json.MarshalIndent(dir, "", "  ")
	if err != nil {
		return fmt.Errorf("encode url directory: %w", err)
	}
	if d := filepath.Dir(f.Path); d != "" {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create url directory dir: %w", err)
		}
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write url directory: %w", err)
	}
	return os.Rename(tmp, f.Path)
}
