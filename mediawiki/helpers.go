package mediawiki

// Helpers for digging through decoded API responses. The MediaWiki API is
// loosely typed; every accessor tolerates a missing or mistyped value by
// returning the zero value.

func getMap(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

func getList(m map[string]any, key string) []any {
	v, _ := m[key].([]any)
	return v
}

func getString(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

// getInt reads a numeric field. JSON numbers decode as float64, but some
// wikis stringify ids, so both forms are accepted.
func getInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// has reports whether the key is present at all. MediaWiki signals boolean
// facts ("missing", "redirect", "minor") by key presence with an empty
// value.
func has(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func getStrings(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, el := range v {
			if s, ok := el.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case map[string]any:
		// Ancient MediaWiki sometimes returns multi-valued fields as an
		// object keyed by index.
		out := make([]string, 0, len(v))
		for _, el := range v {
			if s, ok := el.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
