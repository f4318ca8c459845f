package main

import (
	"strconv"
	"strings"
)

// parseValue guesses the type of a command-line value: integer, float,
// boolean, then string. The tree coerces it to the node's kind.
func parseValue(s string) any {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	} else if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	} else if v, err := strconv.ParseBool(s); err == nil {
		return v
	}
	return s
}

// parseValues parses each argument; a quoted argument stays a string.
func parseValues(args []string) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		if len(a) >= 2 && strings.HasPrefix(a, `"`) && strings.HasSuffix(a, `"`) {
			out = append(out, a[1:len(a)-1])
			continue
		}
		out = append(out, parseValue(a))
	}
	return out
}
