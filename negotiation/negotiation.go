// Package negotiation selects the response format for a barrister server
// from the client's `Accept` header.
package negotiation

import (
	"strconv"
	"strings"
)

// SelectQValue selects and returns the best content type from the allowed
// set given an `Accept` header with optional quality values. The *first*
// item in allowed is preferred on a tie. Wildcards like `*/*` and
// `application/*` match the first allowed type they cover. A quality of zero
// means "not acceptable". If nothing matches, returns an empty string.
func SelectQValue(header string, allowed []string) string {
	best := ""
	bestQ := 0.0
	for _, format := range strings.Split(header, ",") {
		parts := strings.Split(format, ";")
		name := strings.Trim(parts[0], " \t")

		q := 1.0
		for _, param := range parts[1:] {
			trimmed := strings.Trim(param, " \t")
			if strings.HasPrefix(trimmed, "q=") {
				q, _ = strconv.ParseFloat(trimmed[2:], 64)
			}
		}
		if q <= 0 {
			continue
		}

		match := matchAllowed(name, allowed)
		if match == "" {
			continue
		}

		if q > bestQ || (q == bestQ && match == allowed[0]) {
			bestQ = q
			best = match
		}
	}

	return best
}

// matchAllowed returns the allowed content type covered by `name`.
func matchAllowed(name string, allowed []string) string {
	if name == "*/*" || name == "*" {
		if len(allowed) > 0 {
			return allowed[0]
		}
		return ""
	}
	prefix, wildcard := strings.CutSuffix(name, "/*")
	for _, n := range allowed {
		if n == name {
			return n
		}
		if wildcard && strings.HasPrefix(n, prefix+"/") {
			return n
		}
	}
	return ""
}
