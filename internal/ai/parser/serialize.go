package parser

import (
	"sort"
	"strings"

	"webgen_server/internal/types"
)

// primaryOrder lists the files the output contract names, in contract order.
var primaryOrder = map[string]int{"index.html": 0, "styles.css": 1, "script.js": 2}

// OrderedNames returns the bundle's filenames with the contract files first
// and the rest sorted.
func OrderedNames(files types.FileBundle) []string {
	names := files.Names()
	sort.Slice(names, func(i, j int) bool {
		pi, iok := primaryOrder[names[i]]
		pj, jok := primaryOrder[names[j]]
		switch {
		case iok && jok:
			return pi < pj
		case iok:
			return true
		case jok:
			return false
		}
		return names[i] < names[j]
	})
	return names
}

// Serialize writes files in the delimited grammar Extract's first tier reads:
// each file is a marker line, its content, then one blank separator line.
// Content lines must not themselves begin with FileMarker or EndMarker.
func Serialize(files types.FileBundle) string {
	var sb strings.Builder
	for _, name := range OrderedNames(files) {
		sb.WriteString(FileMarker)
		sb.WriteString(name)
		sb.WriteString(" " + markerSuffix + "\n")
		sb.WriteString(files[name])
		sb.WriteString("\n\n")
	}
	sb.WriteString(EndMarker)
	sb.WriteString("\n")
	return sb.String()
}
