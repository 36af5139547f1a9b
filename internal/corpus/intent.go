package corpus

import (
	"strings"
)

// intentKeys maps normalized header keys to the Intent field they fill.
var intentKeys = map[string]func(*Intent) *string{
	"PURPOSE":           func(i *Intent) *string { return &i.Purpose },
	"DIFFICULTY":        func(i *Intent) *string { return &i.Difficulty },
	"CONCEPTS":          func(i *Intent) *string { return &i.Concepts },
	"EXPECTED RESULTS":  func(i *Intent) *string { return &i.ExpectedResults },
	"EXPECTED":          func(i *Intent) *string { return &i.ExpectedResults },
	"LEARNING OUTCOMES": func(i *Intent) *string { return &i.LearningOutcomes },
	"OUTCOMES":          func(i *Intent) *string { return &i.LearningOutcomes },
}

// ParseIntent extracts intent metadata from the leading comment block of source.
//
// Recognized lines look like "-- PURPOSE: Demonstrate recursive CTEs". A comment
// line indented by two or more spaces after the prefix continues the previous
// key. Scanning stops at the first non-comment, non-blank line.
func ParseIntent(source string, prefixes []string) Intent {
	if len(prefixes) == 0 {
		prefixes = DefaultCommentPrefixes
	}

	var intent Intent
	var current *string

	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			current = nil
			continue
		}

		body, ok := stripCommentPrefix(trimmed, prefixes)
		if !ok {
			break
		}

		content := strings.TrimSpace(body)
		if content == "" {
			current = nil
			continue
		}

		if field, value, ok := matchIntentKey(&intent, content); ok {
			*field = value
			current = field
			continue
		}

		if current != nil && isContinuation(body) {
			if *current == "" {
				*current = content
			} else {
				*current += " " + content
			}
			continue
		}

		current = nil
	}

	return intent
}

func stripCommentPrefix(line string, prefixes []string) (string, bool) {
	for _, prefix := range prefixes {
		if strings.HasPrefix(line, prefix) {
			return line[len(prefix):], true
		}
	}
	return "", false
}

func matchIntentKey(intent *Intent, content string) (*string, string, bool) {
	idx := strings.Index(content, ":")
	if idx <= 0 {
		return nil, "", false
	}

	key := strings.ToUpper(strings.TrimSpace(content[:idx]))
	key = strings.NewReplacer("_", " ", "-", " ").Replace(key)
	key = strings.Join(strings.Fields(key), " ")

	field, ok := intentKeys[key]
	if !ok {
		return nil, "", false
	}
	return field(intent), strings.TrimSpace(content[idx+1:]), true
}

// isContinuation reports whether a comment body is indented past the usual single space.
func isContinuation(body string) bool {
	if strings.HasPrefix(body, "\t") {
		return true
	}
	return strings.HasPrefix(body, "  ")
}
