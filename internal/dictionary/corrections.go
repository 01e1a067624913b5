package dictionary

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// SaveCorrections writes the corrections added at runtime to path as
// word<TAB>correction<TAB>confidence lines. The file is replaced atomically.
func (e *Engine) SaveCorrections(path string) error {
	e.mu.RLock()
	words := make([]string, 0, len(e.custom))
	for w := range e.custom {
		words = append(words, w)
	}
	sort.Strings(words)
	entries := make([]Entry, len(words))
	for i, w := range words {
		entries[i] = e.custom[w]
	}
	e.mu.RUnlock()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".corrections-*.tmp")
	if err != nil {
		return fmt.Errorf("dictionary: save corrections: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for i, word := range words {
		fmt.Fprintf(w, "%s\t%s\t%.2f\n", word, entries[i].Correction, entries[i].Confidence)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("dictionary: save corrections: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("dictionary: save corrections: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("dictionary: save corrections: %w", err)
	}
	return nil
}

// LoadCorrections reads a file written by [Engine.SaveCorrections] and adds
// every entry. A missing file is not an error. It returns the number of
// corrections added.
func (e *Engine) LoadCorrections(path string) (int, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("dictionary: load corrections: %w", err)
	}
	defer f.Close()

	entries, _, err := ParseEntries(f, path)
	if err != nil {
		return 0, err
	}
	n := 0
	for word, ent := range entries {
		if err := e.AddCorrection(word, ent.Correction, ent.Confidence); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
