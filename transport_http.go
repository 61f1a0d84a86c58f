package barrister

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPTransport sends messages as HTTP POST requests. Connection reuse,
// timeouts and TLS are left to the underlying `http.Client`.
type HTTPTransport struct {
	// URL of the server endpoint.
	URL string

	// Client to send with, defaults to `http.DefaultClient`.
	Client *http.Client

	// ContentType selects the wire format from `DefaultFormats`, defaults to
	// `application/json`.
	ContentType string

	// Header is added to every request.
	Header http.Header
}

// NewHTTPTransport creates a JSON transport for the given URL.
func NewHTTPTransport(url string) *HTTPTransport {
	return &HTTPTransport{URL: url, Client: http.DefaultClient, ContentType: "application/json"}
}

// Send posts the message and decodes the reply with the same format. Any
// non-2xx status is returned as a `*TransportError`.
func (t *HTTPTransport) Send(ctx context.Context, msg Message[Request]) (Message[Response], error) {
	ct := t.ContentType
	if ct == "" {
		ct = "application/json"
	}
	format, ok := DefaultFormats[ct]
	if !ok {
		return Message[Response]{}, fmt.Errorf("unknown format %q", ct)
	}

	buf := &bytes.Buffer{}
	if err := format.Marshal(buf, msg.Value()); err != nil {
		return Message[Response]{}, fmt.Errorf("unable to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, buf)
	if err != nil {
		return Message[Response]{}, err
	}
	for k, values := range t.Header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Accept", ct)

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Message[Response]{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Message[Response]{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Message[Response]{}, &TransportError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	var v any
	if err := format.Unmarshal(body, &v); err != nil {
		return Message[Response]{}, fmt.Errorf("unable to decode response: %w", err)
	}
	return ParseResponseMessage(v)
}
