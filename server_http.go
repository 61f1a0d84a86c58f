package barrister

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/danielgtaylor/barrister/negotiation"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// loadFormats snapshots `DefaultFormats` the first time the server handles
// HTTP traffic, so formats registered by package init functions are seen.
func (s *Server) loadFormats() {
	s.formatsOnce.Do(func() {
		s.formats = make(map[string]Format, len(DefaultFormats))
		for k, v := range DefaultFormats {
			s.formats[k] = v
			if strings.Contains(k, "/") {
				s.contentTypes = append(s.contentTypes, k)
			}
		}
		// JSON is preferred on ties.
		slices.SortFunc(s.contentTypes, func(a, b string) bool {
			if a == "application/json" || b == "application/json" {
				return a == "application/json"
			}
			return a < b
		})
	})
}

// Reply is an encoded HTTP reply to an exchange.
type Reply struct {
	Status      int
	ContentType string
	Body        []byte
}

func textReply(status int, msg string) Reply {
	return Reply{Status: status, ContentType: "text/plain; charset=utf-8", Body: []byte(msg + "\n")}
}

// Exchange processes one HTTP request body independently of the HTTP library
// in use. The request format is chosen by `contentType` and the response
// format is negotiated from `accept`, falling back to the request format.
// Protocol errors are always sent with a 200 status as JSON-RPC error
// objects; only an unknown format or an oversized body gets an HTTP error.
func (s *Server) Exchange(ctx context.Context, contentType, accept string, body []byte) Reply {
	s.loadFormats()

	ct := "application/json"
	if contentType != "" {
		if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
			ct = parsed
		}
	}
	in, ok := s.formats[ct]
	if !ok {
		return textReply(http.StatusUnsupportedMediaType, fmt.Sprintf("unsupported content type %q", ct))
	}

	if int64(len(body)) > s.maxBodyBytes {
		return textReply(http.StatusRequestEntityTooLarge, "request body too large")
	}

	outCT := ct
	if accept != "" {
		if selected := negotiation.SelectQValue(accept, s.contentTypes); selected != "" {
			outCT = selected
		}
	}

	result := s.HandleBytes(ctx, body, in)

	buf := &bytes.Buffer{}
	if err := s.formats[outCT].Marshal(buf, result); err != nil {
		s.logger.Error("Unable to encode response", zap.Error(err))
		return textReply(http.StatusInternalServerError, "unable to encode response")
	}
	return Reply{Status: http.StatusOK, ContentType: outCT, Body: buf.Bytes()}
}

// ServeHTTP serves the contract over HTTP POST. See `Exchange` for format
// selection.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, s.maxBodyBytes+1))
	if err != nil {
		http.Error(w, "unable to read request body", http.StatusBadRequest)
		return
	}

	reply := s.Exchange(r.Context(), r.Header.Get("Content-Type"), r.Header.Get("Accept"), body)
	w.Header().Set("Content-Type", reply.ContentType)
	w.WriteHeader(reply.Status)
	if _, err := w.Write(reply.Body); err != nil {
		s.logger.Debug("Unable to write response", zap.Error(err))
	}
}
