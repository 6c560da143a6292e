package common

import (
	"strconv"
	"strings"
)

// AtoiDefault parses value, returning def when it is blank or malformed.
func AtoiDefault(value string, def int) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	return def
}
