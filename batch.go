package barrister

import (
	"context"
	"encoding/json"
	"fmt"
)

// Result is the outcome of one call in a batch.
type Result struct {
	Value any
	Err   error
}

// Decode converts the result value into a typed Go value, or returns the
// call's error.
func (r Result) Decode(out any) error {
	if r.Err != nil {
		return r.Err
	}
	return Decode(r.Value, out)
}

// Batch accumulates calls and sends them in a single round trip. The peer
// may run batched calls in any order or in parallel, so never put calls
// which depend on one another in the same batch.
//
// A batch belongs to a single goroutine and can only be sent once.
type Batch struct {
	client   *Client
	requests []Request
	sent     bool
}

// StartBatch opens a new batch.
func (c *Client) StartBatch() *Batch {
	return &Batch{client: c}
}

// Call queues a call. Request validation happens now, so a call with bad
// params is rejected here and never sent.
func (b *Batch) Call(method string, params ...any) error {
	if b.sent {
		return ErrBatchSent
	}
	req, err := b.client.NewRequest(method, params...)
	if err != nil {
		return err
	}
	b.requests = append(b.requests, *req)
	return nil
}

// Len returns the number of queued calls.
func (b *Batch) Len() int {
	return len(b.requests)
}

// Send sends all queued calls and returns one result per call, in the order
// the calls were queued. Responses are matched to calls by ID; a call the
// peer did not answer gets an `InternalError`.
func (b *Batch) Send(ctx context.Context) ([]Result, error) {
	if b.sent {
		return nil, ErrBatchSent
	}
	if len(b.requests) == 0 {
		return nil, ErrBatchEmpty
	}
	b.sent = true

	msg, err := b.client.transport.Send(ctx, BatchOf(b.requests...))
	if err != nil {
		return nil, err
	}

	// A non-batch reply means the peer rejected the batch as a whole.
	if !msg.IsBatch && len(msg.Items) == 1 && msg.Items[0].Error != nil {
		return nil, msg.Items[0].Error
	}

	byID := make(map[string]*Response, len(msg.Items))
	for i := range msg.Items {
		byID[idKey(msg.Items[i].ID)] = &msg.Items[i]
	}

	results := make([]Result, len(b.requests))
	for i := range b.requests {
		req := &b.requests[i]
		resp, ok := byID[idKey(req.ID)]
		if !ok {
			results[i].Err = Errorf(InternalError, "No result for request id: %v", req.ID)
			continue
		}
		results[i].Value, results[i].Err = b.client.result(req, resp)
	}

	return results, nil
}

// idKey canonicalizes an opaque request ID so that equal IDs compare equal
// as map keys regardless of their decoded Go type.
func idKey(id any) string {
	id, _ = idValue(id)
	if n, ok := toInt64(id); ok && IsIntegral(id) {
		return fmt.Sprintf("n:%d", n)
	}
	b, err := json.Marshal(id)
	if err != nil {
		return fmt.Sprintf("%#v", id)
	}
	return string(b)
}
