// Package httpclient provides the HTTP transport boundary for replayfire.
//
// [NewClient] creates an http.Client tuned for sustained replay traffic
// with connection reuse and an optional per-request timeout:
//
//	client := httpclient.NewClient(30 * time.Second)
//
// [Requester] adapts that client to the replay engine's Transport
// interface: each captured event becomes one request against the
// configured host and port, and the full response body is returned so the
// response sink can extract service-reported fields.
//
//	req, err := httpclient.NewRequester(client, "qa-core-es3", 9200)
//	resp, err := req.RoundTrip(ctx, event)
//
// Transport-level failures (connection refused, timeouts, malformed
// responses) are returned as errors; any status code the target actually
// produced is a normal response.
package httpclient
