package addon

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseHeaders decodes a JSON object of header names to values. Non-string
// values are rendered with fmt.
func parseHeaders(raw string) (map[string]string, error) {
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, err
	}
	headers := make(map[string]string, len(decoded))
	for k, v := range decoded {
		switch val := v.(type) {
		case string:
			headers[k] = val
		case nil:
		default:
			headers[k] = fmt.Sprint(val)
		}
	}
	return headers, nil
}

// param returns parameters[key], or fallback when it is blank.
func param(parameters map[string]string, key, fallback string) string {
	if v := strings.TrimSpace(parameters[key]); v != "" {
		return parameters[key]
	}
	return fallback
}

// splitList splits a comma-separated parameter, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
