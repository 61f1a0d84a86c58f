package barrister

import "context"

type contextKey string

const callInfoKey contextKey = "barrister-call-info"

// CallInfo describes the call being served.
type CallInfo struct {
	// RequestID is the opaque request identifier, nil if absent and `NullID`
	// if sent as null.
	RequestID any

	// Method is the full method name, e.g. `Calculator.add`.
	Method string

	// Interface and Function are the resolved parts of the method.
	Interface string
	Function  string
}

// GetCallInfo returns information about the current call from a handler or
// middleware context.
func GetCallInfo(ctx context.Context) (*CallInfo, bool) {
	info, ok := ctx.Value(callInfoKey).(*CallInfo)
	return info, ok
}
