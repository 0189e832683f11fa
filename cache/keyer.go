package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Keyer generates deterministic fingerprints from a tool's identity and its
// resolved call arguments.
//
// Contract:
// - Determinism: identical logical arguments must produce identical keys,
//   regardless of map iteration order or how values were constructed.
// - Exclusions: argument names listed in Exclude are dropped before hashing,
//   so positional parameters like pagination cursors do not split entries.
type Keyer struct {
	// Exclude lists argument names omitted from the fingerprint.
	Exclude []string
}

// Key fingerprints the tool name plus its arguments.
// Format: tool:<name>:<hash> where hash is the first 16 hex characters of
// SHA-256 over the canonical JSON of the argument map.
func (k Keyer) Key(name string, args map[string]any) (string, error) {
	trimmed := args
	if len(k.Exclude) > 0 && len(args) > 0 {
		trimmed = make(map[string]any, len(args))
		for key, v := range args {
			trimmed[key] = v
		}
		for _, drop := range k.Exclude {
			delete(trimmed, drop)
		}
	}

	canonical, err := canonicalize(trimmed)
	if err != nil {
		return "", fmt.Errorf("cache: canonicalizing arguments for %q: %w", name, err)
	}

	sum := sha256.Sum256(canonical)
	return "tool:" + name + ":" + hex.EncodeToString(sum[:8]), nil
}

// canonicalize produces a deterministic JSON form of v. The value is first
// normalized through a JSON round-trip so that structs, typed slices and
// fmt.Stringer-backed types all reduce to the same shape, then object keys
// are emitted in sorted order recursively.
func canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, err
	}
	return appendCanonical(nil, normalized)
}

func appendCanonical(dst []byte, v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		dst = append(dst, '{')
		for i, k := range keys {
			if i > 0 {
				dst = append(dst, ',')
			}
			keyRaw, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			dst = append(dst, keyRaw...)
			dst = append(dst, ':')
			dst, err = appendCanonical(dst, val[k])
			if err != nil {
				return nil, err
			}
		}
		return append(dst, '}'), nil

	case []any:
		dst = append(dst, '[')
		for i, item := range val {
			if i > 0 {
				dst = append(dst, ',')
			}
			var err error
			dst, err = appendCanonical(dst, item)
			if err != nil {
				return nil, err
			}
		}
		return append(dst, ']'), nil

	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return append(dst, raw...), nil
	}
}
