package gemini

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// FallbackFilename is used whenever derivation fails or sanitization leaves
// nothing usable.
const FallbackFilename = "processed-image"

var filenameInvalid = regexp.MustCompile(`[^a-z0-9-_]+`)

// SanitizeFilename reduces model output to a safe kebab-case base name
// without extension. Never returns an empty string.
func SanitizeFilename(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.ReplaceAll(name, " ", "-")
	name = filenameInvalid.ReplaceAllString(name, "")
	name = strings.Trim(name, "-_")
	if name == "" {
		return FallbackFilename
	}
	return name
}

// extensionFor maps a response MIME type to a file extension.
func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

// uniqueName suffixes repeated base names so artifacts from one run never
// overwrite each other. used maps base name to the count seen so far; the
// caller guards it.
func uniqueName(used map[string]int, base string) string {
	n := used[base]
	used[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n+1)
}

// stripExtension returns the name without its final extension.
func stripExtension(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
