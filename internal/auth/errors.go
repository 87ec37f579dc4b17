package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrConflict     = errors.New("username already exists")
	ErrUnauthorized = errors.New("invalid username or password")
)

// ValidationError lists per-field problems with a request body.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}
