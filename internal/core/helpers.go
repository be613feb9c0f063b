package core

import (
	"path/filepath"
	"slices"
	"strings"
)

// sortedCopy returns a sorted copy of names for stable error messages.
func sortedCopy(names []string) []string {
	out := slices.Clone(names)
	slices.Sort(out)
	return out
}

// ExportFileName swaps the final extension of name for the target format's
// extension: "data.CSV" becomes "data.xlsx". Names without an extension get
// one appended.
func ExportFileName(name string, f Format) string {
	base := filepath.Base(name)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" || base == "." {
		base = "export"
	}
	return base + f.Extension()
}
