// Package sse implements the Streaming Proxy (C7): opens a long-read HTTP
// channel to a configured streaming backend and forwards SSE frames
// unchanged, synthesizing an OpenAI-shaped error event on non-2xx.
//
// Grounded on the teacher's pkg/sse/sse.go for line-oriented SSE parsing
// and on original_source's
// services/.../api/v1/openai.py:proxy_streaming_response for the exact
// non-2xx fallback fidelity (SPEC_FULL.md 3.6): a strict two-stage
// decode, not a single best-effort struct unmarshal, so a structurally
// wrong but JSON-valid body still falls back correctly.
package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const connectTimeout = 10 * time.Second

// Frame is one forwarded line, already terminated the way spec §4.7
// requires: "line + \n\n".
type Frame string

// Proxy streams url's SSE body to sink, returning once the upstream
// closes or a non-2xx response has been translated into exactly one
// synthesized error frame.
func Proxy(ctx context.Context, url string, sink func(Frame) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("sse: build request: %w", err)
	}

	// connectTimeout bounds dialing only; the request context is ctx, so
	// reading the body is not cut short once connected.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout}).DialContext
	defer transport.CloseIdleConnections()

	client := &http.Client{Transport: transport} // no read timeout: spec §4.7 requires none once connected
	resp, err := client.Do(req)
	if err != nil {
		return sink(synthesizeConnectError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return sink(synthesizeFromBody(resp.StatusCode, resp.Status, resp.Body))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := sink(Frame(line + "\n\n")); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// synthesizeFromBody implements the strict two-stage decode: unmarshal
// into map[string]any, then type-assert every required field. Any
// structural deviation — missing keys, wrong types, invalid JSON — falls
// back to the synthesized shape, never a partial pass-through.
func synthesizeFromBody(status int, statusText string, body io.Reader) Frame {
	raw, _ := io.ReadAll(body)

	var generic map[string]any
	if json.Unmarshal(raw, &generic) == nil {
		if errObj, ok := generic["error"].(map[string]any); ok {
			message, mOK := errObj["message"].(string)
			typ, tOK := errObj["type"].(string)
			if mOK && tOK {
				code := "server_error"
				if c, ok := errObj["code"].(string); ok {
					code = c
				}
				payload, _ := json.Marshal(map[string]any{
					"error": map[string]any{
						"message": message,
						"type":    typ,
						"code":    code,
					},
				})
				return Frame("data: " + string(payload) + "\n\n")
			}
		}
	}

	payload, _ := json.Marshal(map[string]any{
		"error": map[string]any{
			"status":  status,
			"message": fmt.Sprintf("%d %s", status, statusText),
			"type":    "server_error",
			"code":    "server_error",
		},
	})
	return Frame("data: " + string(payload) + "\n\n")
}

func synthesizeConnectError(err error) Frame {
	payload, _ := json.Marshal(map[string]any{
		"error": map[string]any{
			"status":  0,
			"message": err.Error(),
			"type":    "server_error",
			"code":    "server_error",
		},
	})
	return Frame("data: " + string(payload) + "\n\n")
}
