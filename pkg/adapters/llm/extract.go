package llm

import (
	"errors"
	"strings"
)

// ErrNoJSON is returned when a reply holds no balanced JSON object.
var ErrNoJSON = errors.New("no balanced JSON object found")

// ExtractObject returns the first balanced JSON object in s.
// Code fences and surrounding prose are ignored; braces inside strings do
// not count towards the balance.
func ExtractObject(s string) (string, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "\uFEFF"))
	if inner, ok := stripFence(s); ok {
		s = strings.TrimSpace(inner)
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		if out, ok := balancedFrom(s, i); ok {
			return out, nil
		}
	}
	return "", ErrNoJSON
}

// stripFence unwraps s when it starts with a ``` or ~~~ fenced block.
func stripFence(s string) (string, bool) {
	for _, fence := range []string{"```", "~~~"} {
		if !strings.HasPrefix(s, fence) {
			continue
		}
		rest := s[len(fence):]
		nl := strings.IndexByte(rest, '\n')
		if nl == -1 {
			return "", false
		}
		rest = rest[nl+1:]
		if end := strings.Index(rest, fence); end != -1 {
			return rest[:end], true
		}
		return "", false
	}
	return "", false
}

func balancedFrom(s string, start int) (string, bool) {
	var (
		stack    = []byte{s[start]}
		inString bool
		escape   bool
	)
	for i := start + 1; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escape:
				escape = false
			case c == '\\':
				escape = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			top := stack[len(stack)-1]
			if (top == '{') != (c == '}') {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
