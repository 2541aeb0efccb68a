package snowflake

import (
	"fmt"
	"regexp"
)

// The capture layer writes plan files with the procedure's JSON embedded in
// banner text ("RAW RESULT:", separator rules). Extraction tries the whole
// payload first, then progressively narrower framed forms.
var framedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`RAW RESULT:\s*({[\s\S]*})\s*={10,}`),
	regexp.MustCompile(`({[\s\S]*})`),
	regexp.MustCompile(`({[^{]*?(?:{[^{]*?})*[^}]*?})`),
}

// ExtractJSON recovers the main JSON object from a possibly framed plan
// artifact.
func ExtractJSON(data []byte) (map[string]any, error) {
	if doc, err := unmarshalLenient(data); err == nil {
		return doc, nil
	}

	content := string(data)
	for _, pattern := range framedPatterns {
		m := pattern.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		if doc, err := unmarshalLenient([]byte(m[1])); err == nil {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("snowflake: no valid json found in plan artifact")
}
