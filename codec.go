package barrister

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Format represents a wire format like JSON or CBOR. Unmarshal always
// decodes into the generic value model (`map[string]any`, `[]any`, ...).
type Format struct {
	// Marshal a value to a given writer (e.g. response body).
	Marshal func(writer io.Writer, v any) error

	// Unmarshal a value into `v` from the given bytes (e.g. request body).
	Unmarshal func(data []byte, v any) error
}

// DefaultJSONFormat is the default JSON formatter. Numbers are decoded as
// `json.Number` so large integers survive the round trip intact.
var DefaultJSONFormat = Format{
	Marshal: func(w io.Writer, v any) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	},
	Unmarshal: unmarshalJSON,
}

// DefaultFormats is the set of formats servers and HTTP transports know
// about, keyed by content type and short name. Importing
// `github.com/danielgtaylor/barrister/formats/cbor` adds CBOR.
var DefaultFormats = map[string]Format{
	"application/json": DefaultJSONFormat,
	"json":             DefaultJSONFormat,
}

func unmarshalJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	// Anything but whitespace after the first value is a parse error too.
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("invalid character after top-level value at offset %d", dec.InputOffset())
	}
	return nil
}
