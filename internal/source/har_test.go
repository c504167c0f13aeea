package source

import (
	"context"
	"strings"
	"testing"
	"time"
)

const sampleHAR = `{
  "log": {
    "version": "1.2",
    "entries": [
      {
        "startedDateTime": "2024-05-01T10:30:05Z",
        "request": {
          "method": "get",
          "url": "https://shop.example.com/api/items?page=2"
        }
      },
      {
        "startedDateTime": "2024-05-01T10:30:00Z",
        "request": {
          "method": "POST",
          "url": "https://shop.example.com/api/search",
          "postData": {
            "mimeType": "application/json",
            "text": "{\"q\":\"shoes\"}"
          }
        }
      },
      {
        "startedDateTime": "2024-05-01T10:30:02Z",
        "request": {
          "method": "POST",
          "url": "https://cdn.example.com/beacon"
        }
      }
    ]
  }
}`

func TestParseHAR(t *testing.T) {
	src, err := ParseHAR(strings.NewReader(sampleHAR), HARFilter{})
	if err != nil {
		t.Fatalf("ParseHAR() error = %v", err)
	}
	if got := src.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	ctx := context.Background()

	// Events come out ordered by capture time, not file order.
	first, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	wantTS := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	if !first.Timestamp.Equal(wantTS) {
		t.Errorf("Timestamp = %v, want %v", first.Timestamp, wantTS)
	}
	if first.Method != "POST" || first.Path != "/api/search" {
		t.Errorf("first event = %s %s, want POST /api/search", first.Method, first.Path)
	}
	if got, want := string(first.Body), `{"q":"shoes"}`; got != want {
		t.Errorf("Body = %s, want %s", got, want)
	}

	_, _ = src.Next(ctx)

	third, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	// Lowercase methods are normalized; the query string survives.
	if third.Method != "GET" {
		t.Errorf("Method = %q, want GET", third.Method)
	}
	if third.Path != "/api/items?page=2" {
		t.Errorf("Path = %q, want /api/items?page=2", third.Path)
	}
	if third.Body != nil {
		t.Errorf("Body = %s, want nil for a request without postData", third.Body)
	}
}

func TestParseHARHostFilter(t *testing.T) {
	src, err := ParseHAR(strings.NewReader(sampleHAR), HARFilter{
		IncludeHosts: []string{"shop.example.com"},
	})
	if err != nil {
		t.Fatalf("ParseHAR() error = %v", err)
	}
	if got := src.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2 after host filter", got)
	}
}

func TestParseHARMethodFilter(t *testing.T) {
	src, err := ParseHAR(strings.NewReader(sampleHAR), HARFilter{
		IncludeMethods: []string{"GET"},
	})
	if err != nil {
		t.Fatalf("ParseHAR() error = %v", err)
	}
	if got := src.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1 after method filter", got)
	}
	ev, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if ev.Method != "GET" {
		t.Errorf("Method = %q, want GET", ev.Method)
	}
}

func TestParseHARInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"not json", "not a har file"},
		{"missing log", `{"version": "1.2"}`},
		{"bad timestamp", `{"log":{"entries":[{"startedDateTime":"last tuesday","request":{"method":"GET","url":"http://x/y"}}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseHAR(strings.NewReader(tt.input), HARFilter{}); err == nil {
				t.Error("ParseHAR() should fail")
			}
		})
	}
}
