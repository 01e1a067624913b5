package pattern

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// Layout is a keyboard adjacency graph: for each key, the keys a finger can
// hit by mistake when aiming for it. Layouts are read-only after construction.
type Layout struct {
	name string
	adj  map[rune][]rune
}

// Name returns the layout name, e.g. "qwerty".
func (l *Layout) Name() string { return l.name }

// Adjacent returns the keys adjacent to r. Lookups are case-insensitive; the
// returned slice must not be modified.
func (l *Layout) Adjacent(r rune) []rune {
	return l.adj[unicode.ToLower(r)]
}

// IsAdjacent reports whether b sits next to a on this layout.
func (l *Layout) IsAdjacent(a, b rune) bool {
	return slices.Contains(l.Adjacent(a), unicode.ToLower(b))
}

// Row definitions, top (number row) to bottom.
var (
	qwertyRows = []string{"1234567890", "qwertyuiop", "asdfghjkl;", "zxcvbnm,."}
	azertyRows = []string{"1234567890", "azertyuiop", "qsdfghjklm", "wxcvbn,;:"}
	dvorakRows = []string{"1234567890", "',.pyfgcrl", "aoeuidhtns", ";qjkxbmwvz"}
)

// QWERTY returns the US QWERTY layout.
func QWERTY() *Layout { return NewLayoutFromRows("qwerty", qwertyRows) }

// AZERTY returns the French AZERTY layout.
func AZERTY() *Layout { return NewLayoutFromRows("azerty", azertyRows) }

// Dvorak returns the Dvorak simplified layout.
func Dvorak() *Layout { return NewLayoutFromRows("dvorak", dvorakRows) }

// LayoutByName returns the built-in layout with the given case-insensitive
// name. An empty name selects QWERTY.
func LayoutByName(name string) (*Layout, error) {
	switch strings.ToLower(name) {
	case "", "qwerty":
		return QWERTY(), nil
	case "azerty":
		return AZERTY(), nil
	case "dvorak":
		return Dvorak(), nil
	}
	return nil, fmt.Errorf("pattern: unknown keyboard layout %q; valid values: qwerty, azerty, dvorak", name)
}

// NewLayoutFromRows derives adjacency from staggered key rows. Each row sits
// half a key to the right of the row above it, so key (r, c) touches:
//
//	same row:  (r, c-1), (r, c+1)
//	row above: (r-1, c), (r-1, c+1)
//	row below: (r+1, c-1), (r+1, c)
//
// The resulting relation is symmetric.
func NewLayoutFromRows(name string, rows []string) *Layout {
	grid := make([][]rune, len(rows))
	for i, row := range rows {
		grid[i] = []rune(strings.ToLower(row))
	}
	at := func(r, c int) (rune, bool) {
		if r < 0 || r >= len(grid) || c < 0 || c >= len(grid[r]) {
			return 0, false
		}
		return grid[r][c], true
	}

	adj := make(map[rune][]rune)
	for r, row := range grid {
		for c, key := range row {
			var near []rune
			for _, d := range [][2]int{{0, -1}, {0, 1}, {-1, 0}, {-1, 1}, {1, -1}, {1, 0}} {
				if k, ok := at(r+d[0], c+d[1]); ok && k != key && !slices.Contains(near, k) {
					near = append(near, k)
				}
			}
			adj[key] = near
		}
	}
	return &Layout{name: strings.ToLower(name), adj: adj}
}
