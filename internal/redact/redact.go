package redact

import "strings"

// DefaultSensitiveKeys are the keys automatically redacted from
// operator-ledger detail maps before they are written.
var DefaultSensitiveKeys = []string{
	"token", "override_token", "secret", "password",
	"authorization", "api_key", "session", "signature",
	"key_hash", "email", "phone",
}

// MaskValue replaces a value with "***". Numbers and bools are preserved.
func MaskValue(v any) any {
	switch v.(type) {
	case int, int64, float64, bool:
		return v
	case nil:
		return nil
	default:
		return "***"
	}
}

// RedactMap redacts specified keys in a map.
func RedactMap(data map[string]any, keys []string) map[string]any {
	result := make(map[string]any, len(data))
	keySet := make(map[string]bool, len(keys))
	for _, k := range keys {
		keySet[strings.ToLower(k)] = true
	}

	for k, v := range data {
		if keySet[strings.ToLower(k)] {
			result[k] = MaskValue(v)
		} else {
			result[k] = v
		}
	}
	return result
}

// RedactAuto redacts default sensitive keys plus any extra keys from a map.
func RedactAuto(data map[string]any, extraKeys []string) map[string]any {
	allKeys := append([]string{}, DefaultSensitiveKeys...)
	allKeys = append(allKeys, extraKeys...)
	return RedactMap(data, allKeys)
}
