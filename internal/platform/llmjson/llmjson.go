// Package llmjson pulls JSON objects out of free-form model output.
package llmjson

import (
	"errors"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"
)

var (
	fencePattern         = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

var ErrNoJSON = errors.New("no json object in model output")

// ExtractObject returns the first JSON object found in content. Markdown fences, line
// comments and trailing commas are removed. An object cut off mid-stream is closed so
// that the prefix still parses. repaired reports whether closing was needed.
func ExtractObject(content string) (obj string, repaired bool) {
	body := content
	if m := fencePattern.FindStringSubmatch(content); len(m) > 1 && strings.Contains(m[1], "{") {
		body = m[1]
	} else if i := strings.Index(content, "```"); i >= 0 && strings.Contains(content[i:], "{") && strings.Count(content, "```") == 1 {
		// Unterminated fence: the model stopped before closing it.
		body = content[i+3:]
	}
	start := strings.Index(body, "{")
	if start < 0 {
		return "", false
	}
	raw, complete := scanObject(body[start:])
	if !complete {
		raw = closeTruncated(raw)
		repaired = true
	}
	return clean(raw), repaired
}

// Decode extracts the first object in content and unmarshals it into out.
func Decode(content string, out any) error {
	obj, _ := ExtractObject(content)
	if obj == "" {
		return ErrNoJSON
	}
	return sonic.UnmarshalString(obj, out)
}

// scanObject returns the balanced object starting at s[0] or the whole input when it never closes.
func scanObject(s string) (string, bool) {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return s, false
}

// closeTruncated terminates an open string and appends the missing closers in nesting order.
func closeTruncated(s string) string {
	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	var b strings.Builder
	b.WriteString(s)
	if escaped {
		b.WriteString("\\")
	}
	if inString {
		b.WriteString(`"`)
	}
	out := strings.TrimRight(b.String(), " \t\r\n")
	out = strings.TrimSuffix(out, ",")
	if strings.HasSuffix(out, ":") {
		out += " null"
	}
	for i := len(stack) - 1; i >= 0; i-- {
		out += string(stack[i])
	}
	return out
}

func clean(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return trailingCommaPattern.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}
	inString, escaped := false, false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
