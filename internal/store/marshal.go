package store

import (
	"fmt"

	"github.com/sonarsource/astquery/internal/canon"
)

// marshalValue converts a result value to canonical JSON TEXT for storage,
// so equal values always compare equal in SQL.
func marshalValue(v any) (string, error) {
	data, err := canon.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}
