package document

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// supportedExtensions are the document types the renderer can open.
var supportedExtensions = map[string]struct{}{
	".pdf":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".heic": {},
	".heif": {},
}

// Entry is one document in a folder listing. State is carried as explicit
// flags; how they are presented is up to the caller.
type Entry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Processed   bool   `json:"processed"`
	Flagged     bool   `json:"flagged"`
	Highlighted bool   `json:"highlighted"`
}

// List returns the supported documents in dir in natural sort order.
// processed is keyed by document name, flagged and highlighted by full path.
func List(dir string, processed, flagged, highlighted map[string]struct{}) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(de.Name()))
		if _, ok := supportedExtensions[ext]; !ok {
			continue
		}

		path := filepath.Join(dir, de.Name())
		entry := Entry{Name: de.Name(), Path: path}
		if _, ok := processed[de.Name()]; ok {
			entry.Processed = true
		}
		if _, ok := flagged[path]; ok {
			entry.Flagged = true
		}
		if _, ok := highlighted[path]; ok {
			entry.Highlighted = true
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return naturalLess(entries[i].Name, entries[j].Name)
	})
	return entries, nil
}
