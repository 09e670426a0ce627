package action

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// executeHTTPRequest issues a network call per the payload fields:
// url (required), method (default GET), headers (mapping), body (string or
// JSON-encodable value). The response status code, headers of interest, and
// a bounded prefix of the body become the task result.
//
// A transport error, a timeout, or a status >= 400 fails the task.
func (d *StandardDispatcher) executeHTTPRequest(ctx context.Context, payload map[string]any) (map[string]any, error) {
	url, ok := stringField(payload, "url")
	if !ok || url == "" {
		return nil, errors.New("http_request: missing required field \"url\"")
	}

	method, _ := stringField(payload, "method")
	if method == "" {
		method = http.MethodGet
	}
	method = strings.ToUpper(method)

	var body io.Reader
	if raw, ok := payload["body"]; ok && raw != nil {
		switch v := raw.(type) {
		case string:
			body = strings.NewReader(v)
		case []byte:
			body = bytes.NewReader(v)
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("http_request: encoding body: %w", err)
			}
			body = bytes.NewReader(encoded)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("http_request: %w", err)
	}

	if headers, ok := payload["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http_request: %w", err)
	}
	defer resp.Body.Close()

	captured, err := io.ReadAll(io.LimitReader(resp.Body, int64(d.maxCapture)))
	if err != nil {
		return nil, fmt.Errorf("http_request: reading response: %w", err)
	}

	result := map[string]any{
		"status_code": resp.StatusCode,
		"body":        string(captured),
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		result["content_type"] = ct
	}

	if resp.StatusCode >= 400 {
		return result, fmt.Errorf("http_request: %s %s returned status %d", method, url, resp.StatusCode)
	}
	return result, nil
}
