// Package domain holds the partition stage's core types: the four MAUDE
// record categories, their fixed schemas, and the filename matching rules
package domain

import (
	"fmt"
	"strings"
)

// Category identifies one of the four MAUDE flat-file record kinds
type Category string

const (
	// CategoryMaster is the mdrfoi master file, one row per report key
	CategoryMaster Category = "mdrfoi"

	// CategoryPatient is the patient dependent file, 0..N rows per key
	CategoryPatient Category = "patient"

	// CategoryDevice is the foidev dependent file, 0..N rows per key
	CategoryDevice Category = "foidev"

	// CategoryText is the foitext dependent file, 0..N rows per key
	CategoryText Category = "foitext"
)

// KeyColumn is the shared join key, first column in all four categories
const KeyColumn = "mdr_report_key"

// HeaderMarker is the token the source files carry in the first field of
// their header row. Detection checks this fixed token at the fixed position
// only, never substring containment on the whole row
const HeaderMarker = "MDR_REPORT_KEY"

// Categories returns all four categories, master first
func Categories() []Category {
	return []Category{CategoryMaster, CategoryPatient, CategoryDevice, CategoryText}
}

// Dependents returns the three dependent categories in a stable order
func Dependents() []Category {
	return []Category{CategoryPatient, CategoryDevice, CategoryText}
}

// Valid reports whether c is one of the four known categories
func (c Category) Valid() bool {
	switch c {
	case CategoryMaster, CategoryPatient, CategoryDevice, CategoryText:
		return true
	}
	return false
}

// ShardFileName is the canonical shard file name for a category,
// e.g. "5.mdrfoi.txt"
func ShardFileName(shard int, c Category) string {
	return fmt.Sprintf("%d.%s.txt", shard, c)
}

// MatchCategory attributes an input file to exactly one category by
// filename substring. The table is declarative so the mapping stays
// testable on its own
func MatchCategory(filename string) (Category, bool) {
	base := strings.ToLower(filename)
	for _, c := range Categories() {
		if strings.Contains(base, string(c)) {
			return c, true
		}
	}
	return "", false
}

// Ignored reports whether filename matches any of the ignore substrings.
// The source site ships auxiliary files (problem codes, incremental adds
// and changes) that do not conform to the four category schemas
func Ignored(filename string, ignores []string) bool {
	base := strings.ToLower(filename)
	for _, ig := range ignores {
		if ig == "" {
			continue
		}
		if strings.Contains(base, strings.ToLower(ig)) {
			return true
		}
	}
	return false
}

// DefaultIgnores is the stock ignore list for the MAUDE download site
func DefaultIgnores() []string {
	return []string{"problem", "add", "change"}
}

// RouteStats counts the routing outcome for one input file or an
// aggregated set of files. Every skipped row is observable here and in logs
type RouteStats struct {
	Routed         int64
	SkippedHeaders int64
	SkippedBadKey  int64
}

// Add accumulates o into s
func (s *RouteStats) Add(o RouteStats) {
	s.Routed += o.Routed
	s.SkippedHeaders += o.SkippedHeaders
	s.SkippedBadKey += o.SkippedBadKey
}
