package llm

import (
	"bytes"
	"context"
	"io"
	"net/http"
)

// maxErrorBody bounds how much of an upstream error body is read.
const maxErrorBody = 64 * 1024

type snapshotKey struct{}

// bodySnapshot receives the status and body of a non-2xx upstream response.
type bodySnapshot struct {
	status int
	body   string
}

func withSnapshot(ctx context.Context, s *bodySnapshot) context.Context {
	return context.WithValue(ctx, snapshotKey{}, s)
}

// snapshotTransport copies non-2xx response bodies into the request's
// snapshot and hands the client an identical body to decode.
type snapshotTransport struct {
	base http.RoundTripper
}

func (t *snapshotTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
		return resp, err
	}

	snap, _ := req.Context().Value(snapshotKey{}).(*bodySnapshot)
	if snap == nil {
		return resp, nil
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	snap.status = resp.StatusCode
	if readErr == nil {
		snap.body = string(body)
	}

	return resp, nil
}
