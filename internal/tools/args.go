package tools

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/receiptdex/internal/domain"
)

// Argument extraction is deliberately loose: unknown fields are ignored, and
// numbers arrive as whatever the JSON decoder produced. Only a missing
// required field or an uncoercible value is an error.

func stringArg(args map[string]any, name string, required bool) (string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		if required {
			return "", fmt.Errorf("missing argument %q: %w", name, domain.ErrInvalidArgument)
		}
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T: %w", name, raw, domain.ErrInvalidArgument)
	}
	return s, nil
}

func numberArg(args map[string]any, name string, required bool) (float64, bool, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		if required {
			return 0, false, fmt.Errorf("missing argument %q: %w", name, domain.ErrInvalidArgument)
		}
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, true, nil
	case int:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false, fmt.Errorf("argument %q: %v: %w", name, err, domain.ErrInvalidArgument)
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("argument %q must be a number, got %T: %w", name, raw, domain.ErrInvalidArgument)
	}
}

func intArg(args map[string]any, name string) (int, bool, error) {
	f, ok, err := numberArg(args, name, false)
	if err != nil || !ok {
		return 0, ok, err
	}
	return int(f), true, nil
}

func timeArg(args map[string]any, name string, required bool) (time.Time, error) {
	s, err := stringArg(args, name, required)
	if err != nil || s == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("argument %q must be RFC 3339, got %q: %w", name, s, domain.ErrInvalidArgument)
	}
	return t, nil
}

// amountBound reads an optional amount. Absent or the -1 sentinel both mean
// unbounded and come back as nil.
func amountBound(args map[string]any, name string) (*float64, error) {
	f, ok, err := numberArg(args, name, false)
	if err != nil {
		return nil, err
	}
	if !ok || f == -1 {
		return nil, nil
	}
	return &f, nil
}
