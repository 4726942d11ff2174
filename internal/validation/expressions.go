package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	outputRefPattern   = regexp.MustCompile(`reference\('([^']*)'\)\.outputs\.([A-Za-z0-9_]+)\.value`)
	runtimeReadPattern = regexp.MustCompile(`\b(reference|list[A-Za-z0-9]*)\(\s*resourceId\(`)
	callPrefixPattern  = regexp.MustCompile(`^\[[A-Za-z][A-Za-z0-9]*\(`)
)

// isExpression reports whether ARM evaluates s as an expression.
// "[[" escapes a literal leading bracket.
func isExpression(s string) bool {
	return len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']' && !strings.HasPrefix(s, "[[")
}

// looksLikeBrokenExpression catches "[func(..." strings missing the closing bracket
func looksLikeBrokenExpression(s string) bool {
	return !isExpression(s) && !strings.HasPrefix(s, "[[") && callPrefixPattern.MatchString(s)
}

// checkExpression verifies quotes and parentheses are balanced
func checkExpression(s string) error {
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return fmt.Errorf("empty expression")
	}
	depth := 0
	inQuote := false
	for i := 0; i < len(body); i++ {
		c := body[i]
		if inQuote {
			if c == '\'' {
				if i+1 < len(body) && body[i+1] == '\'' {
					i++
					continue
				}
				inQuote = false
			}
			continue
		}
		switch c {
		case '\'':
			inQuote = true
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("unexpected ')' at offset %d", i)
			}
		}
	}
	if inQuote {
		return fmt.Errorf("unterminated string literal")
	}
	if depth != 0 {
		return fmt.Errorf("%d unclosed '('", depth)
	}
	return nil
}

// walkStrings visits every string under v with its path, maps in key order
func walkStrings(v any, path []string, fn func(path []string, s string)) {
	switch t := v.(type) {
	case string:
		fn(path, t)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkStrings(t[k], appendPath(path, k), fn)
		}
	case []any:
		for i, item := range t {
			walkStrings(item, appendPath(path, strconv.Itoa(i)), fn)
		}
	}
}

func appendPath(path []string, elems ...string) []string {
	out := make([]string, 0, len(path)+len(elems))
	out = append(out, path...)
	return append(out, elems...)
}

// outputRef is a read of another deployment's output
type outputRef struct {
	Deployment string
	Output     string
}

func findOutputRefs(s string) []outputRef {
	var out []outputRef
	for _, m := range outputRefPattern.FindAllStringSubmatch(s, -1) {
		out = append(out, outputRef{Deployment: m[1], Output: m[2]})
	}
	return out
}

// runtimeRead is a reference()/list*() call on a resourceId() target
type runtimeRead struct {
	Function string
	Target   string // resource key, "" when not statically known
}

func findRuntimeReads(s string) []runtimeRead {
	var out []runtimeRead
	for _, m := range runtimeReadPattern.FindAllStringSubmatchIndex(s, -1) {
		fn := s[m[2]:m[3]]
		args, ok := callArgs(s[m[1]:])
		key := ""
		if ok {
			key = keyFromArgs(args)
		}
		out = append(out, runtimeRead{Function: fn, Target: key})
	}
	return out
}

// resourceIDTarget parses "[resourceId('T', 'n')]" into a resource key
func resourceIDTarget(s string) (string, bool) {
	if !strings.HasPrefix(s, "[resourceId(") || !isExpression(s) {
		return "", false
	}
	args, ok := callArgs(s[len("[resourceId("):])
	if !ok {
		return "", false
	}
	key := keyFromArgs(args)
	return key, key != ""
}

// callArgs splits the arguments of a call whose opening '(' was already
// consumed, stopping at the matching ')'.
func callArgs(s string) ([]string, bool) {
	var args []string
	depth := 0
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote {
			if c == '\'' {
				if i+1 < len(s) && s[i+1] == '\'' {
					i++
					continue
				}
				inQuote = false
			}
			continue
		}
		switch c {
		case '\'':
			inQuote = true
		case '(':
			depth++
		case ')':
			if depth == 0 {
				args = append(args, strings.TrimSpace(s[start:i]))
				return args, true
			}
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return nil, false
}

// keyFromArgs builds a resource key from resourceId() arguments. Leading
// subscription or resource group arguments are skipped: the type is the
// first literal argument containing '/'. Name arguments may be expressions.
func keyFromArgs(args []string) string {
	for i, a := range args {
		lit, ok := literal(a)
		if ok && strings.Contains(lit, "/") && i+1 < len(args) {
			segments := make([]string, 0, len(args)-i-1)
			for _, n := range args[i+1:] {
				segments = append(segments, canonicalName(n))
			}
			return resourceKey(lit, strings.Join(segments, "/"))
		}
	}
	return ""
}

// nameKey is the key form of a resource's "name" value
func nameKey(name string) string {
	if isExpression(name) {
		return canonicalName(name[1 : len(name)-1])
	}
	return name
}

// canonicalName renders a name argument so that a name and the resourceId()
// arguments addressing it compare equal: literals keep their text, concat()
// is flattened and any other expression is kept in brackets.
func canonicalName(arg string) string {
	arg = strings.TrimSpace(arg)
	if lit, ok := literal(arg); ok {
		return lit
	}
	if strings.HasPrefix(arg, "concat(") {
		if parts, ok := callArgs(arg[len("concat("):]); ok {
			var b strings.Builder
			for _, p := range parts {
				b.WriteString(canonicalName(p))
			}
			return b.String()
		}
	}
	return "[" + arg + "]"
}

// literal unquotes a template string literal
func literal(a string) (string, bool) {
	if len(a) < 2 || a[0] != '\'' || a[len(a)-1] != '\'' {
		return "", false
	}
	return strings.ReplaceAll(a[1:len(a)-1], "''", "'"), true
}

func resourceKey(resourceType, name string) string {
	return strings.ToLower(resourceType) + "|" + strings.ToLower(name)
}
