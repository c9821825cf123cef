// Package parser turns a raw model completion into a named file bundle.
package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"webgen_server/internal/types"
)

const (
	// FileMarker opens a file block; the rest of the line is the filename.
	FileMarker = "=== FILE: "
	// EndMarker terminates scanning.
	EndMarker = "=== END FILES ==="

	markerSuffix = "==="
	fence        = "```"

	// FallbackExcerptLimit caps how much of the completion the scaffold embeds.
	FallbackExcerptLimit = 1000
)

// Tier reports which strategy produced a bundle.
type Tier string

const (
	TierDelimited Tier = "delimited"
	TierFenced    Tier = "fenced"
	TierFallback  Tier = "fallback"
	TierEmergency Tier = "emergency"
)

const (
	emergencyCSS = "/* Generated styles */\nbody { font-family: Arial, sans-serif; margin: 0; padding: 20px; }"
	emergencyJS  = "// Generated JavaScript\nconsole.log('Website generated successfully!');"
)

// Extract always returns at least one file.
func Extract(raw string) types.FileBundle {
	files, _ := ExtractWithTier(raw)
	return files
}

// ExtractWithTier is Extract plus the tier that produced the result. Any
// panic inside the cascade yields the three-file emergency bundle.
func ExtractWithTier(raw string) (files types.FileBundle, tier Tier) {
	defer func() {
		if r := recover(); r != nil {
			files = EmergencyBundle(raw)
			tier = TierEmergency
		}
	}()
	return cascade(raw)
}

// cascade is a variable so tests can force the emergency path.
var cascade = runCascade

func runCascade(raw string) (types.FileBundle, Tier) {
	if files := extractDelimited(raw); len(files) > 0 {
		return files, TierDelimited
	}
	if files := extractFenced(raw); len(files) > 0 {
		return files, TierFenced
	}
	return types.FileBundle{"index.html": FallbackHTML(raw)}, TierFallback
}

// extractDelimited returns nil unless some file accumulated content.
func extractDelimited(raw string) types.FileBundle {
	files := types.FileBundle{}
	var (
		current string
		open    bool
		lines   []string
		filled  bool
	)
	flush := func() {
		if !open {
			return
		}
		// one blank separator line before the next marker belongs to the grammar
		if n := len(lines); n > 0 && strings.TrimRight(lines[n-1], "\r") == "" {
			lines = lines[:n-1]
		}
		content := strings.Join(lines, "\n")
		if content != "" {
			filled = true
		}
		files[current] = content
	}

scan:
	for _, line := range strings.Split(raw, "\n") {
		bare := strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(bare, FileMarker):
			flush()
			current = fileNameFromMarker(bare)
			open = current != ""
			lines = nil
		case strings.HasPrefix(bare, EndMarker):
			break scan
		case open:
			lines = append(lines, line)
		}
	}
	flush()
	if !filled {
		return nil
	}
	return files
}

func fileNameFromMarker(line string) string {
	name := strings.TrimSpace(strings.TrimPrefix(line, FileMarker))
	name = strings.TrimSpace(strings.TrimSuffix(name, markerSuffix))
	return name
}

// extractFenced maps fenced code blocks to files by language tag. Later
// blocks overwrite earlier ones with the same filename.
func extractFenced(raw string) types.FileBundle {
	files := types.FileBundle{}
	var (
		inBlock bool
		lang    string
		lines   []string
	)
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, fence) {
			if inBlock {
				if lang != "" && len(lines) > 0 {
					files[LanguageToFilename(lang)] = strings.Join(lines, "\n")
				}
				inBlock, lang, lines = false, "", nil
				continue
			}
			inBlock = true
			lang = fenceLanguage(trimmed)
			continue
		}
		if inBlock {
			lines = append(lines, strings.TrimRight(line, "\r"))
		}
	}
	return files
}

// fenceLanguage is the whole remainder of the opening fence, lower-cased,
// so an info string such as "html title=x" is kept as one tag.
func fenceLanguage(openLine string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(openLine, fence)))
}

// LanguageToFilename maps a fence language tag to the file it populates.
func LanguageToFilename(lang string) string {
	switch strings.ToLower(lang) {
	case "html":
		return "index.html"
	case "css":
		return "styles.css"
	case "javascript", "js":
		return "script.js"
	default:
		return fmt.Sprintf("%s.txt", lang)
	}
}

// FallbackHTML wraps the first FallbackExcerptLimit characters of content in
// a minimal page.
func FallbackHTML(content string) string {
	excerpt := content[:excerptEnd(content, FallbackExcerptLimit)]
	return `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Generated Website</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; line-height: 1.6; }
        .container { max-width: 800px; margin: 0 auto; }
        h1 { color: #333; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Generated Website</h1>
        <div>
            <p>AI Response:</p>
            <pre style="background: #f4f4f4; padding: 15px; border-radius: 5px; overflow-x: auto;">` + excerpt + `...</pre>
        </div>
    </div>
</body>
</html>`
}

// excerptEnd is the byte offset just past the first limit characters of s.
// Invalid bytes count as one character each and are kept as they are.
func excerptEnd(s string, limit int) int {
	i := 0
	for n := 0; n < limit && i < len(s); n++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}

// EmergencyBundle is returned when extraction itself fails.
func EmergencyBundle(raw string) types.FileBundle {
	return types.FileBundle{
		"index.html": FallbackHTML(raw),
		"styles.css": emergencyCSS,
		"script.js":  emergencyJS,
	}
}
