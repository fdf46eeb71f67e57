// Package pmids reads and formats PubMed identifier lists.
package pmids

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// Parse splits input on commas and whitespace and returns the non-empty ids in order,
// without duplicates.
func Parse(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// ReadFile reads one PMID per line from path. Blank lines are skipped.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pmid list: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pmid list: %w", err)
	}
	return Parse(strings.Join(lines, "\n")), nil
}

// Format joins ids for pasting into the web form.
func Format(ids []string) string {
	return strings.Join(ids, ", ")
}
