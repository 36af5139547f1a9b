package engine

import (
	"regexp"
	"strings"
)

var (
	triggerStart = regexp.MustCompile(`(?is)^\s*CREATE\s+(TEMP\s+|TEMPORARY\s+)?TRIGGER\b`)
	triggerEnd   = regexp.MustCompile(`(?i)\bEND\s*$`)
)

// SplitStatements breaks a script into statements at top-level semicolons.
//
// Semicolons inside quoted strings, quoted identifiers, dollar-quoted bodies,
// comments and SQLite trigger bodies do not split. Statements consisting only
// of whitespace and comments are dropped. Returned statements exclude the
// terminating semicolon.
func SplitStatements(script string) []string {
	var (
		stmts   []string
		current strings.Builder
		hasCode bool
	)

	flush := func() {
		if hasCode {
			stmts = append(stmts, strings.TrimSpace(current.String()))
		}
		current.Reset()
		hasCode = false
	}

	n := len(script)
	for i := 0; i < n; i++ {
		c := script[i]

		switch {
		case c == '-' && i+1 < n && script[i+1] == '-':
			end := strings.IndexByte(script[i:], '\n')
			if end < 0 {
				end = n - i
			}
			current.WriteString(script[i : i+end])
			i += end - 1

		case c == '/' && i+1 < n && script[i+1] == '*':
			end := blockCommentEnd(script, i)
			current.WriteString(script[i:end])
			i = end - 1

		case c == '\'' || c == '"':
			end := quotedEnd(script, i, c)
			current.WriteString(script[i:end])
			hasCode = true
			i = end - 1

		case c == '$':
			if tag, ok := dollarTag(script, i); ok {
				closing := strings.Index(script[i+len(tag):], tag)
				end := n
				if closing >= 0 {
					end = i + len(tag) + closing + len(tag)
				}
				current.WriteString(script[i:end])
				hasCode = true
				i = end - 1
				continue
			}
			current.WriteByte(c)
			hasCode = true

		case c == ';':
			text := current.String()
			if triggerStart.MatchString(text) && !triggerEnd.MatchString(stripTrailingComments(text)) {
				current.WriteByte(c)
				continue
			}
			flush()

		default:
			current.WriteByte(c)
			if !isSpace(c) {
				hasCode = true
			}
		}
	}
	flush()

	return stmts
}

// quotedEnd returns the index just past the closing quote. Doubled quotes are escapes.
func quotedEnd(s string, start int, quote byte) int {
	for i := start + 1; i < len(s); i++ {
		if s[i] != quote {
			continue
		}
		if i+1 < len(s) && s[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return len(s)
}

// blockCommentEnd returns the index just past a possibly nested /* */ comment.
func blockCommentEnd(s string, start int) int {
	depth := 0
	for i := start; i < len(s)-1; i++ {
		switch {
		case s[i] == '/' && s[i+1] == '*':
			depth++
			i++
		case s[i] == '*' && s[i+1] == '/':
			depth--
			i++
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(s)
}

// dollarTag recognizes $$ or $name$ at position i.
func dollarTag(s string, i int) (string, bool) {
	if i > 0 && isIdentChar(s[i-1]) {
		return "", false
	}
	for j := i + 1; j < len(s); j++ {
		c := s[j]
		if c == '$' {
			return s[i : j+1], true
		}
		if !isIdentChar(c) || (j == i+1 && c >= '0' && c <= '9') {
			return "", false
		}
	}
	return "", false
}

func stripTrailingComments(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, "--"); idx >= 0 {
			lines[i] = line[:idx]
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c >= 0x80
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
