package ingest

import (
	"encoding/json"
	"strings"
	"time"
)

type EntryKind string

const (
	EntryRequest  EntryKind = "request"
	EntryResponse EntryKind = "response"
)

const (
	requestMarker  = "[PAYMENT REQUEST]"
	responseMarker = "[PAYMENT RESPONSE]"

	// Python logging asctime: "2006-01-02 15:04:05,123".
	headerTimeLayout = "2006-01-02 15:04:05,000"
)

// Entry is one parsed payment_traffic.log record. The interception engine
// writes a timestamped marker line followed by an indented JSON document.
type Entry struct {
	Kind        EntryKind
	Timestamp   time.Time
	Method      string
	URL         string
	StatusCode  int
	ContentType string
	Size        int64
}

type entryBody struct {
	Method     string            `json:"method"`
	URL        string            `json:"url"`
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// ParseEntries scans a chunk of log text and returns the complete entries
// plus the byte offset of the first incomplete trailing entry (so the caller
// can retry it once more bytes arrive). Lines that belong to no marker, such
// as the engine's own error logging, are skipped.
func ParseEntries(data string) (entries []Entry, consumed int) {
	lines := strings.SplitAfter(data, "\n")

	offset := 0
	i := 0
	for i < len(lines) {
		line := lines[i]
		if !strings.HasSuffix(line, "\n") {
			// Partial line at the tail; wait for the rest.
			return entries, offset
		}

		kind, ok := markerKind(line)
		if !ok {
			offset += len(line)
			i++
			continue
		}

		doc, docLines, complete := collectJSONDocument(lines[i+1:])
		if !complete {
			return entries, offset
		}

		entrySize := len(line) + docLen(lines[i+1:i+1+docLines])
		offset += entrySize
		i += 1 + docLines
		if doc == "" {
			// Torn write; the marker never got its document.
			continue
		}
		entry, err := buildEntry(kind, line, doc)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, offset
}

func markerKind(line string) (EntryKind, bool) {
	switch {
	case strings.Contains(line, requestMarker):
		return EntryRequest, true
	case strings.Contains(line, responseMarker):
		return EntryResponse, true
	default:
		return "", false
	}
}

// collectJSONDocument gathers lines until braces balance. Returns the raw
// document, the number of lines it spans, and whether it terminated. A fresh
// marker before the braces balance means the engine tore the previous write;
// the torn lines are reported as spanned with an empty document so the caller
// consumes and skips them instead of waiting for bytes that never come.
func collectJSONDocument(lines []string) (string, int, bool) {
	var sb strings.Builder
	depth := 0
	started := false

	for i, line := range lines {
		if !strings.HasSuffix(line, "\n") {
			return "", 0, false
		}
		if _, isMarker := markerKind(line); isMarker {
			return "", i, true
		}
		sb.WriteString(line)
		depth += braceDelta(line)
		if strings.Contains(line, "{") {
			started = true
		}
		if started && depth <= 0 {
			return sb.String(), i + 1, true
		}
	}
	return "", 0, false
}

func braceDelta(line string) int {
	delta := 0
	inString := false
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inString = !inString
		case !inString && r == '{':
			delta++
		case !inString && r == '}':
			delta--
		}
	}
	return delta
}

func buildEntry(kind EntryKind, header, doc string) (Entry, error) {
	var body entryBody
	if err := json.Unmarshal([]byte(doc), &body); err != nil {
		return Entry{}, err
	}

	entry := Entry{
		Kind:       kind,
		Timestamp:  parseHeaderTime(header),
		Method:     body.Method,
		URL:        body.URL,
		StatusCode: body.StatusCode,
		Size:       int64(len(body.Body)),
	}
	for name, value := range body.Headers {
		if strings.EqualFold(name, "content-type") {
			entry.ContentType = value
			break
		}
	}
	return entry, nil
}

func parseHeaderTime(header string) time.Time {
	idx := strings.Index(header, " - ")
	if idx <= 0 {
		return time.Now().UTC()
	}
	ts, err := time.Parse(headerTimeLayout, strings.TrimSpace(header[:idx]))
	if err != nil {
		return time.Now().UTC()
	}
	return ts.UTC()
}

func docLen(lines []string) int {
	total := 0
	for _, line := range lines {
		total += len(line)
	}
	return total
}
