package errors

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// MaxRecentErrorLength caps messages extracted for the recent-error list.
const MaxRecentErrorLength = 100

// UnknownErrorMessage is the fallback when no message can be extracted.
const UnknownErrorMessage = "Unknown Error"

// ExtractMessage derives a short human-readable message from arbitrary error
// detail. API layers surface failures in several shapes: a plain string, an
// object with a top-level "message", or a nested {"error": {"message": ...}}
// envelope. Extraction pattern-matches known shapes and never assumes a field
// exists; it always returns a non-empty string and never panics.
func ExtractMessage(detail interface{}) string {
	msg := extractRaw(detail)
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return UnknownErrorMessage
	}
	return Truncate(msg, MaxRecentErrorLength)
}

func extractRaw(detail interface{}) string {
	switch d := detail.(type) {
	case nil:
		return ""
	case string:
		return d
	case error:
		// The error may itself carry a JSON payload from the API.
		if fromJSON := extractFromJSON(d.Error()); fromJSON != "" {
			return fromJSON
		}
		return d.Error()
	case map[string]interface{}:
		return extractFromMap(d)
	case json.RawMessage:
		var parsed interface{}
		if err := json.Unmarshal(d, &parsed); err == nil {
			return extractRaw(parsed)
		}
		return string(d)
	default:
		return ""
	}
}

// extractFromMap handles {message: ...} and {error: {message: ...}} shapes.
func extractFromMap(m map[string]interface{}) string {
	if msg, ok := m["message"].(string); ok && msg != "" {
		return msg
	}
	if inner, ok := m["error"].(map[string]interface{}); ok {
		if msg, ok := inner["message"].(string); ok && msg != "" {
			return msg
		}
	}
	// Some callers stash a bare string under "error".
	if msg, ok := m["error"].(string); ok && msg != "" {
		return msg
	}
	return ""
}

// extractFromJSON attempts to parse an error string as a JSON error envelope.
// Returns empty string when the text is not JSON or has no known shape.
func extractFromJSON(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") {
		return ""
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &m); err != nil {
		return ""
	}
	return extractFromMap(m)
}

// Truncate shortens s to at most max runes, appending an ellipsis marker.
// Safe on multi-byte input.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
