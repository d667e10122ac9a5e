package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"hermannm.dev/wrap"
)

// ErrMalformedBatchInput is returned when batch input is not a JSON array of queries.
var ErrMalformedBatchInput = errors.New("malformed batch input")

// ParseBatch reads a JSON array of queries. Each entry takes the same fields as
// 'report run' flags, plus an optional name.
func ParseBatch(r io.Reader) ([]Query, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, wrap.Error(err, "failed to read batch input")
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: queries must be a JSON array", ErrMalformedBatchInput)
	}

	var queries []Query
	if err := json.Unmarshal(trimmed, &queries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBatchInput, err)
	}
	return queries, nil
}
