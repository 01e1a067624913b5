package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Glob patterns, relative to the dictionary root.
const (
	generalGlob = "*.txt"
	domainGlob  = "domains/**/*.txt"
	wordsGlob   = "words/**/*.txt"
)

// LoadError describes one skipped line of a dictionary file. Load errors are
// never fatal.
type LoadError struct {
	Path   string
	Line   int
	Reason string
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("dictionary: %s:%d: %s", e.Path, e.Line, e.Reason)
}

// ParseEntries reads word<TAB>correction[<TAB>confidence] lines from r.
// Blank lines and lines starting with # are ignored. A missing confidence
// means 1.0. Malformed lines are skipped, logged and reported. The returned
// error is non-nil only when r itself fails.
func ParseEntries(r io.Reader, name string) (map[string]Entry, []*LoadError, error) {
	entries := make(map[string]Entry)
	var skipped []*LoadError

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		word, entry, reason := parseLine(line)
		if reason != "" {
			le := &LoadError{Path: name, Line: lineNo, Reason: reason}
			slog.Warn("dictionary: skipping malformed line", "path", name, "line", lineNo, "err", le)
			skipped = append(skipped, le)
			continue
		}
		entries[word] = entry
	}
	if err := sc.Err(); err != nil {
		return entries, skipped, fmt.Errorf("dictionary: read %s: %w", name, err)
	}
	return entries, skipped, nil
}

func parseLine(line string) (string, Entry, string) {
	fields := strings.Split(line, "\t")
	if len(fields) < 2 || len(fields) > 3 {
		return "", Entry{}, fmt.Sprintf("want 2 or 3 tab-separated fields, got %d", len(fields))
	}
	word := strings.ToLower(strings.TrimSpace(fields[0]))
	corr := strings.TrimSpace(fields[1])
	if word == "" || corr == "" {
		return "", Entry{}, "empty word or correction"
	}
	conf := 1.0
	if len(fields) == 3 {
		f, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return "", Entry{}, fmt.Sprintf("bad confidence %q", fields[2])
		}
		if f < 0 || f > 1 {
			return "", Entry{}, fmt.Sprintf("confidence %v outside [0, 1]", f)
		}
		conf = f
	}
	return word, Entry{Correction: corr, Confidence: conf}, ""
}

// parseWords reads one word per line. Only the first field is used.
func parseWords(r io.Reader, name string) ([]string, error) {
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, strings.ToLower(strings.Fields(line)[0]))
	}
	if err := sc.Err(); err != nil {
		return words, fmt.Errorf("dictionary: read %s: %w", name, err)
	}
	return words, nil
}

// LoadDir loads the dictionary rooted at dir on top of [DefaultTable]:
//
//	dir/*.txt                 general corrections
//	dir/domains/**/<name>.txt domain corrections, domain = file stem
//	dir/words/**/*.txt        plain word lists
func LoadDir(dir string) (*Table, []*LoadError, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("dictionary: load %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("dictionary: load %s: not a directory", dir)
	}
	return LoadFS(os.DirFS(dir))
}

// LoadFS is [LoadDir] over an arbitrary file system.
func LoadFS(fsys fs.FS) (*Table, []*LoadError, error) {
	t := DefaultTable()
	var skipped []*LoadError

	general, err := glob(fsys, generalGlob)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range general {
		entries, bad, err := parseFile(fsys, p)
		if err != nil {
			return nil, nil, err
		}
		skipped = append(skipped, bad...)
		for w, e := range entries {
			t.General[w] = e
		}
	}

	domains, err := glob(fsys, domainGlob)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range domains {
		entries, bad, err := parseFile(fsys, p)
		if err != nil {
			return nil, nil, err
		}
		skipped = append(skipped, bad...)
		name := strings.ToLower(strings.TrimSuffix(path.Base(p), path.Ext(p)))
		if t.Domains[name] == nil {
			t.Domains[name] = make(map[string]Entry, len(entries))
		}
		for w, e := range entries {
			t.Domains[name][w] = e
		}
	}

	lists, err := glob(fsys, wordsGlob)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range lists {
		f, err := fsys.Open(p)
		if err != nil {
			return nil, nil, fmt.Errorf("dictionary: open %s: %w", p, err)
		}
		words, err := parseWords(f, p)
		f.Close()
		if err != nil {
			return nil, nil, err
		}
		for _, w := range words {
			t.Words[w] = struct{}{}
		}
	}

	slog.Info("dictionary loaded",
		"general", len(t.General),
		"domains", len(t.Domains),
		"words", len(t.Words),
		"skipped_lines", len(skipped),
	)
	return t, skipped, nil
}

func glob(fsys fs.FS, pattern string) ([]string, error) {
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("dictionary: glob %s: %w", pattern, err)
	}
	slices.Sort(matches)
	return matches, nil
}

func parseFile(fsys fs.FS, p string) (map[string]Entry, []*LoadError, error) {
	f, err := fsys.Open(p)
	if err != nil {
		return nil, nil, fmt.Errorf("dictionary: open %s: %w", p, err)
	}
	defer f.Close()
	return ParseEntries(f, p)
}
