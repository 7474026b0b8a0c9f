package ingest

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// SideFileName returns the deterministic file name for one extracted section,
// e.g. "AAPL_Item_1A_2023.txt".
func SideFileName(symbol, key, year string) string {
	return fmt.Sprintf("%s_%s_%s.txt", symbol, strings.ReplaceAll(key, " ", "_"), year)
}

// WriteSideFiles writes every non-empty section of ext into dir, overwriting
// earlier extractions. It returns the paths written.
func WriteSideFiles(dir string, ext *Extraction) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create side file dir: %w", err)
	}

	var written []string
	for _, sec := range ext.Ordered() {
		if sec.Content == "" {
			continue
		}
		path := filepath.Join(dir, SideFileName(ext.Symbol, sec.Key, sec.Year))
		if err := os.WriteFile(path, []byte(sec.Content), 0644); err != nil {
			return written, fmt.Errorf("failed to write %s side file for %s: %w", sec.Key, ext.Symbol, err)
		}
		written = append(written, path)
	}

	log.Printf("[SideFile] %s %s: wrote %d section files", ext.Symbol, ext.Year, len(written))
	return written, nil
}

// ReadSideFile returns the stored text of one section.
func ReadSideFile(dir, symbol, key, year string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, SideFileName(symbol, key, year)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
