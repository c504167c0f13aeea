package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// harArchive models the subset of the HAR 1.2 format the replayer needs.
type harArchive struct {
	Log *harLog `json:"log"`
}

type harLog struct {
	Version string      `json:"version"`
	Entries []*harEntry `json:"entries"`
}

type harEntry struct {
	StartedDateTime string      `json:"startedDateTime"`
	Request         *harRequest `json:"request"`
}

type harRequest struct {
	Method   string       `json:"method"`
	URL      string       `json:"url"`
	PostData *harPostData `json:"postData,omitempty"`
}

type harPostData struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// HARFilter restricts which archive entries are replayed.
type HARFilter struct {
	IncludeHosts   []string // only entries whose URL host matches (empty = all)
	IncludeMethods []string // only entries with these methods (empty = all)
}

// HARSource replays the requests recorded in an HTTP Archive (HAR) file,
// ordered by their capture timestamps. Only the request path is replayed;
// the scheme and host of the capture are discarded in favour of the
// configured target.
type HARSource struct {
	events []Event
	index  int
	mu     sync.Mutex
}

// NewHARSource parses the HAR file at path.
func NewHARSource(path string, filter HARFilter) (*HARSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open HAR file: %w", err)
	}
	defer file.Close()

	return ParseHAR(file, filter)
}

// ParseHAR reads a HAR archive from r and converts its entries to events.
func ParseHAR(r io.Reader, filter HARFilter) (*HARSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read HAR data: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty HAR data")
	}

	var archive harArchive
	if err := json.Unmarshal(data, &archive); err != nil {
		return nil, fmt.Errorf("parse HAR JSON: %w", err)
	}
	if archive.Log == nil {
		return nil, fmt.Errorf("invalid HAR: missing log field")
	}

	var events []Event
	for i, entry := range archive.Log.Entries {
		if entry == nil || entry.Request == nil {
			continue
		}
		if !includeHAREntry(entry, filter) {
			continue
		}

		ts, err := time.Parse(time.RFC3339, entry.StartedDateTime)
		if err != nil {
			return nil, fmt.Errorf("HAR entry %d: unparseable startedDateTime %q: %w", i, entry.StartedDateTime, err)
		}

		parsedURL, err := url.Parse(entry.Request.URL)
		if err != nil {
			return nil, fmt.Errorf("HAR entry %d: invalid URL %q: %w", i, entry.Request.URL, err)
		}
		path := parsedURL.Path
		if parsedURL.RawQuery != "" {
			path += "?" + parsedURL.RawQuery
		}

		var body json.RawMessage
		if entry.Request.PostData != nil && entry.Request.PostData.Text != "" {
			body = json.RawMessage(entry.Request.PostData.Text)
		}

		events = append(events, Event{
			Timestamp: ts,
			Method:    strings.ToUpper(entry.Request.Method),
			Path:      path,
			Body:      body,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	return &HARSource{events: events}, nil
}

func includeHAREntry(entry *harEntry, filter HARFilter) bool {
	if len(filter.IncludeHosts) > 0 {
		parsedURL, err := url.Parse(entry.Request.URL)
		if err != nil {
			return false
		}
		found := false
		for _, host := range filter.IncludeHosts {
			if parsedURL.Host == host {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(filter.IncludeMethods) > 0 {
		found := false
		for _, method := range filter.IncludeMethods {
			if strings.EqualFold(entry.Request.Method, method) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// Next returns the next archived request of the current pass.
func (h *HARSource) Next(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	default:
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.index >= len(h.events) {
		return Event{}, ErrExhausted
	}
	ev := h.events[h.index]
	h.index++
	return ev, nil
}

// Reset rewinds to the first archived request.
func (h *HARSource) Reset() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.index = 0
	return nil
}

// Close releases resources. The file is already closed after parsing.
func (h *HARSource) Close() error {
	return nil
}

// Len returns the number of replayable entries in the archive.
func (h *HARSource) Len() int {
	return len(h.events)
}
