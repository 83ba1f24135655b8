package client

import (
	"context"
	"fmt"
	"sort"

	"github.com/muurk/espmesh/internal/meshconfig"
)

// ConfigKeys is every key ReadConfig fetches, settable keys first
var ConfigKeys = append(append([]string{}, meshconfig.SettableKeys...), meshconfig.ReadOnlyKeys...)

// ReadConfig fetches every configuration value from the server
func (c *Client) ReadConfig(ctx context.Context) (map[string]any, error) {
	values := make(map[string]any, len(ConfigKeys))
	for _, key := range ConfigKeys {
		v, err := c.Config(ctx, key, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		values[key] = v
	}
	return values, nil
}

// VerifyConfig reads back every key in expected and lists the ones whose
// value differs. Numbers are compared after JSON decoding, so an int 6
// matches the float64 6 the server returns. Password mismatches never
// include the values.
func (c *Client) VerifyConfig(ctx context.Context, expected map[string]any) ([]string, error) {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var mismatches []string
	for _, key := range keys {
		got, err := c.Config(ctx, key, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		if sameValue(got, expected[key]) {
			continue
		}
		switch key {
		case meshconfig.KeyPassword, meshconfig.KeyAPPassword:
			mismatches = append(mismatches, key+": not applied")
		default:
			mismatches = append(mismatches, fmt.Sprintf("%s: expected %v, got %v", key, expected[key], got))
		}
	}
	return mismatches, nil
}

func sameValue(got, want any) bool {
	if n, ok := toFloat(want); ok {
		g, ok := toFloat(got)
		return ok && g == n
	}
	return got == want
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
