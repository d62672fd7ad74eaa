// Package sym defines canonical symbols for colorizer log output and system
// markers. These symbols are stable across CLI output and documentation.
package sym

// Pipeline stage symbols.
const (
	Queue   = "꩜" // job queue, scheduling, pacing
	Open    = "✿" // graceful startup with orphaned job recovery
	Close   = "❀" // graceful shutdown
	Brush   = "◍" // generation calls to the image model
	Gallery = "▤" // processed results window
	Sink    = "⇩" // download/export sink
)

// System infrastructure symbols.
const (
	DB  = "⊔" // database/storage layer
	Net = "⇅" // HTTP/WebSocket surface
)

// symbolNames maps each glyph to a stable identifier for JSON log output.
var symbolNames = map[string]string{
	Queue:   "queue",
	Open:    "open",
	Close:   "close",
	Brush:   "brush",
	Gallery: "gallery",
	Sink:    "sink",
	DB:      "db",
	Net:     "net",
}

// Name returns the stable identifier for a glyph, or the glyph itself when
// unregistered.
func Name(glyph string) string {
	if name, ok := symbolNames[glyph]; ok {
		return name
	}
	return glyph
}
