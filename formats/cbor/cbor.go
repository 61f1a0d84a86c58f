// Package cbor provides a CBOR wire format for barrister with default
// configuration. Importing this package adds `application/cbor` to
// `barrister.DefaultFormats`, so servers accept and negotiate it and HTTP
// transports can be configured to send it.
package cbor

import (
	"encoding/json"
	"io"
	"reflect"

	"github.com/danielgtaylor/barrister"
	"github.com/fxamacker/cbor/v2"
)

var cborEncMode, _ = cbor.EncOptions{
	// Canonical enc opts
	Sort:          cbor.SortCanonical,
	ShortestFloat: cbor.ShortestFloat16,
	NaNConvert:    cbor.NaNConvert7e00,
	InfConvert:    cbor.InfConvertFloat16,
	IndefLength:   cbor.IndefLengthForbidden,
	// Time handling
	Time:    cbor.TimeUnixDynamic,
	TimeTag: cbor.EncTagRequired,
}.EncMode()

// Maps decode with string keys so payloads match the generic value model
// used by contract validation.
var cborDecMode, _ = cbor.DecOptions{
	DefaultMapType: reflect.TypeOf(map[string]any(nil)),
}.DecMode()

// DefaultCBORFormat is the default CBOR formatter.
var DefaultCBORFormat = barrister.Format{
	Marshal: func(w io.Writer, v any) error {
		return cborEncMode.NewEncoder(w).Encode(toCBOR(v))
	},
	Unmarshal: cborDecMode.Unmarshal,
}

// toCBOR replaces `json.Number` values, which CBOR would otherwise encode as
// text, with native integers or floats.
func toCBOR(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = toCBOR(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = toCBOR(item)
		}
		return out
	}
	return v
}

func init() {
	barrister.DefaultFormats["application/cbor"] = DefaultCBORFormat
	barrister.DefaultFormats["cbor"] = DefaultCBORFormat
}
