// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citation holds the citation list, the batch iterator, and the
// heuristics that derive an output filename from a bibliographic string.
package citation

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// yearPattern matches the first four-digit token that looks like a
// publication year (19xx or 20xx) anywhere in the citation.
var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// authorPattern matches a leading run of ASCII letters, taken as the
// first author's surname.
var authorPattern = regexp.MustCompile(`^[A-Za-z]+`)

// Author extracts the leading author surname from a citation. Citations
// that do not start with a letter yield an empty string.
func Author(cite string) string {
	return authorPattern.FindString(cite)
}

// Year extracts the first year-like token from a citation, or an empty
// string when none occurs.
func Year(cite string) string {
	return yearPattern.FindString(cite)
}

// Filename returns the canonical output name for a citation's PDF:
// a zero-padded three-digit ordinal, author, and year. Author and year
// may be empty when the heuristics find nothing.
func Filename(ordinal int, cite string) string {
	return fmt.Sprintf("%03d_%s_%s.pdf", ordinal, Author(cite), Year(cite))
}

// Entry pairs a citation with its output ordinal.
type Entry struct {
	Ordinal int
	Text    string
}

// Iterate assigns ordinals to a citation list, starting at start and
// incrementing by one. Citation text is trimmed of surrounding
// whitespace. An empty list yields no entries.
func Iterate(citations []string, start int) []Entry {
	entries := make([]Entry, 0, len(citations))
	for i, c := range citations {
		entries = append(entries, Entry{
			Ordinal: start + i,
			Text:    strings.TrimSpace(c),
		})
	}
	return entries
}

// LoadFile reads a citation list from a plain text file, one citation
// per line. Blank lines and lines starting with '#' are skipped.
func LoadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading citation file: %w", err)
	}

	var citations []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		citations = append(citations, line)
	}
	return citations, nil
}

// Slice bounds a citation list to the half-open range [from, to), used
// to process a numbered sub-batch of a larger bibliography. Bounds are
// clamped to the list; from past the end yields an empty list.
func Slice(citations []string, from, to int) []string {
	if from < 0 {
		from = 0
	}
	if to <= 0 || to > len(citations) {
		to = len(citations)
	}
	if from >= to {
		return nil
	}
	return citations[from:to]
}
