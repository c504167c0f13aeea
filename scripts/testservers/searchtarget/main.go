// Command searchtarget runs a small HTTP server that mimics a search
// backend for local replay runs. Every POST to /{index}/_search returns
// a JSON body with a "took" field after an optional artificial delay.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

func main() {
	port := flag.Int("port", 9200, "Listening port")
	minDelay := flag.Duration("min-delay", 0, "Minimum artificial response delay")
	maxDelay := flag.Duration("max-delay", 50*time.Millisecond, "Maximum artificial response delay")
	errorRate := flag.Float64("error-rate", 0, "Fraction of requests answered with HTTP 500")
	flag.Parse()

	if *maxDelay < *minDelay {
		log.Fatalf("max-delay must be >= min-delay")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()

		delay := *minDelay
		if span := *maxDelay - *minDelay; span > 0 {
			delay += time.Duration(rand.Int63n(int64(span)))
		}
		time.Sleep(delay)

		if *errorRate > 0 && rand.Float64() < *errorRate {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "simulated failure"})
			return
		}

		index := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), "/_search")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"took":      delay.Milliseconds(),
			"timed_out": false,
			"_index":    index,
			"hits": map[string]interface{}{
				"total":    map[string]interface{}{"value": len(body) % 100, "relation": "eq"},
				"max_score": 1.0,
				"hits":     []interface{}{},
			},
		})
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("search target listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}
