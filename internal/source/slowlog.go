package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

// slowlogPattern matches one Elasticsearch slowlog line, capturing the
// timestamp, the request type, the index and the query bodies.
var slowlogPattern = regexp.MustCompile(
	`^\[(?P<timestamp>.*?)\]\[.*?\]\[(?P<request_type>.*?)\]\s*\[(?P<index>.*?)\].*source\[(?P<source>.*)\],\s*extra_source\[(?P<extra_source>.*)\]`,
)

// slowlogTimeLayouts are the timestamp shapes seen in slowlog files. The
// fractional part after the comma is dropped before parsing.
var slowlogTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// SlowlogSource replays the search queries recorded in an Elasticsearch
// slowlog file. The whole file is parsed eagerly at construction so a
// malformed capture fails before any request is sent; there is no
// partial-recovery path for a bad line.
type SlowlogSource struct {
	events []Event
	index  int
	mu     sync.Mutex
}

// NewSlowlogSource parses the slowlog file at path.
func NewSlowlogSource(path string) (*SlowlogSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open slowlog file: %w", err)
	}
	defer file.Close()

	return ParseSlowlog(file)
}

// ParseSlowlog reads slowlog lines from r. Entries whose request type is
// not "query" (fetch phases, bulk operations) are skipped.
func ParseSlowlog(r io.Reader) (*SlowlogSource, error) {
	var events []Event

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		match := slowlogPattern.FindStringSubmatch(line)
		if match == nil {
			return nil, fmt.Errorf("slowlog line %d does not match the expected format: %s", lineNo, line)
		}

		fields := namedGroups(slowlogPattern, match)

		requestType := fields["request_type"]
		if idx := strings.LastIndex(requestType, "."); idx != -1 {
			requestType = requestType[idx+1:]
		}
		if requestType != "query" {
			continue
		}

		ts, err := parseSlowlogTime(fields["timestamp"])
		if err != nil {
			return nil, fmt.Errorf("slowlog line %d: %w", lineNo, err)
		}

		body, err := mergeQueryBodies(fields["source"], fields["extra_source"])
		if err != nil {
			return nil, fmt.Errorf("slowlog line %d: %w", lineNo, err)
		}

		events = append(events, Event{
			Timestamp: ts,
			Method:    http.MethodPost,
			Path:      fmt.Sprintf("/%s/_search", fields["index"]),
			Body:      body,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read slowlog: %w", err)
	}

	return &SlowlogSource{events: events}, nil
}

// Next returns the next query event of the current pass.
func (s *SlowlogSource) Next(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index >= len(s.events) {
		return Event{}, ErrExhausted
	}
	ev := s.events[s.index]
	s.index++
	return ev, nil
}

// Reset rewinds to the first event of the capture.
func (s *SlowlogSource) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = 0
	return nil
}

// Close releases resources. The file is already closed after parsing.
func (s *SlowlogSource) Close() error {
	return nil
}

// Len returns the number of query events in one pass.
func (s *SlowlogSource) Len() int {
	return len(s.events)
}

func namedGroups(re *regexp.Regexp, match []string) map[string]string {
	groups := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name != "" && i < len(match) {
			groups[name] = match[i]
		}
	}
	return groups
}

func parseSlowlogTime(raw string) (time.Time, error) {
	// Slowlog timestamps carry milliseconds after a comma; the sub-second
	// part is irrelevant at replay resolution.
	trimmed := raw
	if idx := strings.Index(trimmed, ","); idx != -1 {
		trimmed = trimmed[:idx]
	}
	trimmed = strings.TrimSpace(trimmed)

	for _, layout := range slowlogTimeLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable slowlog timestamp %q", raw)
}

// mergeQueryBodies combines the source and extra_source JSON objects with
// extra_source keys taking precedence, matching how Elasticsearch applies
// the extra source on top of the request body.
func mergeQueryBodies(src, extra string) (json.RawMessage, error) {
	merged := map[string]interface{}{}

	if strings.TrimSpace(src) != "" {
		if err := json.Unmarshal([]byte(src), &merged); err != nil {
			return nil, fmt.Errorf("parse source body: %w", err)
		}
	}
	if strings.TrimSpace(extra) != "" {
		extraFields := map[string]interface{}{}
		if err := json.Unmarshal([]byte(extra), &extraFields); err != nil {
			return nil, fmt.Errorf("parse extra_source body: %w", err)
		}
		for k, v := range extraFields {
			merged[k] = v
		}
	}

	body, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode merged body: %w", err)
	}
	return body, nil
}
