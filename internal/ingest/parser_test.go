package ingest

import (
	"testing"
	"time"
)

const sampleRequest = `2025-03-14 10:22:31,847 - INFO: [PAYMENT REQUEST]
{
    "method": "POST",
    "url": "https://pay.example.com/v1/charge",
    "headers": {
        "Content-Type": "application/json"
    },
    "body": "{\"amount\": 499}"
}
`

const sampleResponse = `2025-03-14 10:22:32,102 - INFO: [PAYMENT RESPONSE]
{
    "method": "POST",
    "url": "https://pay.example.com/v1/charge",
    "status_code": 402,
    "headers": {
        "content-type": "application/json"
    },
    "body": "{}"
}
`

func TestParseSingleRequest(t *testing.T) {
	entries, consumed := ParseEntries(sampleRequest)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if consumed != len(sampleRequest) {
		t.Fatalf("expected full consumption %d, got %d", len(sampleRequest), consumed)
	}

	entry := entries[0]
	if entry.Kind != EntryRequest {
		t.Fatalf("expected request kind, got %q", entry.Kind)
	}
	if entry.Method != "POST" || entry.URL != "https://pay.example.com/v1/charge" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.ContentType != "application/json" {
		t.Fatalf("content type not extracted: %q", entry.ContentType)
	}

	want := time.Date(2025, 3, 14, 10, 22, 31, 847000000, time.UTC)
	if !entry.Timestamp.Equal(want) {
		t.Fatalf("expected %v, got %v", want, entry.Timestamp)
	}
}

func TestParseRequestAndResponse(t *testing.T) {
	data := sampleRequest + sampleResponse
	entries, consumed := ParseEntries(data)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if consumed != len(data) {
		t.Fatalf("expected full consumption, got %d of %d", consumed, len(data))
	}

	if entries[1].Kind != EntryResponse {
		t.Fatalf("expected response kind, got %q", entries[1].Kind)
	}
	if entries[1].StatusCode != 402 {
		t.Fatalf("expected status 402, got %d", entries[1].StatusCode)
	}
}

func TestParseSkipsUnrelatedLines(t *testing.T) {
	data := "2025-03-14 10:22:30,001 - ERROR: proxy upstream refused\n" + sampleRequest
	entries, consumed := ParseEntries(data)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if consumed != len(data) {
		t.Fatalf("expected full consumption, got %d of %d", consumed, len(data))
	}
}

func TestParsePartialTailIsNotConsumed(t *testing.T) {
	// The engine is mid-write: the JSON document has no closing brace yet.
	partial := sampleRequest + "2025-03-14 10:22:33,500 - INFO: [PAYMENT REQUEST]\n{\n    \"method\": \"POST\",\n"

	entries, consumed := ParseEntries(partial)
	if len(entries) != 1 {
		t.Fatalf("expected only the complete entry, got %d", len(entries))
	}
	if consumed != len(sampleRequest) {
		t.Fatalf("partial entry must not be consumed: got %d, want %d", consumed, len(sampleRequest))
	}

	// Once the rest arrives, re-parsing the leftover yields the entry.
	rest := partial[consumed:] + "    \"url\": \"https://pay.example.com/v2/charge\",\n    \"headers\": {},\n    \"body\": \"\"\n}\n"
	entries, consumed = ParseEntries(rest)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after completion, got %d", len(entries))
	}
	if consumed != len(rest) {
		t.Fatalf("expected full consumption of completed entry, got %d of %d", consumed, len(rest))
	}
	if entries[0].URL != "https://pay.example.com/v2/charge" {
		t.Fatalf("unexpected url %q", entries[0].URL)
	}
}

func TestParseBracesInsideStrings(t *testing.T) {
	data := `2025-03-14 10:22:34,000 - INFO: [PAYMENT REQUEST]
{
    "method": "POST",
    "url": "https://pay.example.com/charge",
    "headers": {},
    "body": "{\"note\": \"look: { unbalanced\"}"
}
`
	entries, consumed := ParseEntries(data)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if consumed != len(data) {
		t.Fatalf("expected full consumption, got %d of %d", consumed, len(data))
	}
}

func TestParseTornEntryBeforeFreshMarkerIsSkipped(t *testing.T) {
	// The engine died mid-document and started a new entry after restart.
	// The torn prefix must be consumed, not retried forever.
	torn := "2025-03-14 10:22:33,500 - INFO: [PAYMENT REQUEST]\n{\n    \"method\": \"POST\",\n"
	data := torn + sampleRequest

	entries, consumed := ParseEntries(data)
	if len(entries) != 1 {
		t.Fatalf("expected the complete entry only, got %d", len(entries))
	}
	if entries[0].URL != "https://pay.example.com/v1/charge" {
		t.Fatalf("unexpected url %q", entries[0].URL)
	}
	if consumed != len(data) {
		t.Fatalf("torn entry should be consumed with the rest: got %d of %d", consumed, len(data))
	}
}

func TestParseBackToBackMarkersSkipFirst(t *testing.T) {
	data := "2025-03-14 10:22:33,500 - INFO: [PAYMENT REQUEST]\n" + sampleRequest
	entries, consumed := ParseEntries(data)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if consumed != len(data) {
		t.Fatalf("expected full consumption, got %d of %d", consumed, len(data))
	}
}

func TestParseMalformedDocumentIsSkipped(t *testing.T) {
	broken := `2025-03-14 10:22:35,000 - INFO: [PAYMENT REQUEST]
{
    "method": not-json
}
`
	data := broken + sampleRequest
	entries, consumed := ParseEntries(data)
	if len(entries) != 1 {
		t.Fatalf("expected the valid entry only, got %d", len(entries))
	}
	if consumed != len(data) {
		t.Fatalf("malformed entry should still be consumed: got %d of %d", consumed, len(data))
	}
}
