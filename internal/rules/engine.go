// Package rules normalizes dictated text before it reaches the transcript,
// e.g. "a t a twenty seven" => "ATA 27".
//
// A rules file holds one rule per line; blank lines and lines starting with
// '#' are skipped. Two forms are understood:
//
//	spoken phrase => replacement          (literal, case-insensitive)
//	s/pattern/replacement/flags           (regexp; any non-alphanumeric delimiter)
//
// Regexp flags: i (default on), g (all matches), m, s.
package rules

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

const defaultLoopLimit = 30

// Engine applies substitution rules until the text stops changing.
type Engine struct {
	rules     []rule
	loopLimit int
}

type rule struct {
	re          *regexp.Regexp
	replacement string
	all         bool
}

func (r rule) apply(input string) string {
	if r.all {
		return r.re.ReplaceAllString(input, r.replacement)
	}
	loc := r.re.FindStringSubmatchIndex(input)
	if loc == nil {
		return input
	}
	expanded := r.re.ExpandString(nil, r.replacement, input, loc)
	return input[:loc[0]] + string(expanded) + input[loc[1]:]
}

// NewEngine loads rules from path. An empty path or a missing file yields an
// engine that returns text unchanged.
func NewEngine(path string, loopLimit int) (*Engine, error) {
	if strings.TrimSpace(path) == "" {
		return Parse("", loopLimit)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Parse("", loopLimit)
		}
		return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
	}

	engine, err := Parse(string(contents), loopLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rules file %q: %w", path, err)
	}
	return engine, nil
}

// Parse compiles rules from their textual form.
func Parse(contents string, loopLimit int) (*Engine, error) {
	if loopLimit <= 0 {
		loopLimit = defaultLoopLimit
	}

	engine := &Engine{loopLimit: loopLimit}
	for index, raw := range strings.Split(contents, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var (
			r   rule
			err error
		)
		switch {
		case isSubstitution(line):
			r, err = parseSubstitution(line)
		case strings.Contains(line, "=>"):
			r, err = parseLiteral(line)
		default:
			err = errors.New("unsupported rule format")
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", index+1, err)
		}
		engine.rules = append(engine.rules, r)
	}
	return engine, nil
}

// Len reports the number of compiled rules.
func (e *Engine) Len() int { return len(e.rules) }

// Apply runs every rule in order, repeating until a full pass changes
// nothing or the loop limit is reached.
func (e *Engine) Apply(text string) (string, error) {
	result := text
	for i := 0; i < e.loopLimit && len(e.rules) > 0; i++ {
		before := result
		for _, r := range e.rules {
			result = r.apply(result)
		}
		if result == before {
			break
		}
	}
	return result, nil
}

func parseLiteral(line string) (rule, error) {
	from, to, _ := strings.Cut(line, "=>")
	from = strings.TrimSpace(from)
	if from == "" {
		return rule{}, errors.New("literal rule source cannot be empty")
	}
	return rule{
		re:          regexp.MustCompile("(?i)" + regexp.QuoteMeta(from)),
		replacement: strings.ReplaceAll(strings.TrimSpace(to), "$", "$$"),
		all:         true,
	}, nil
}

func isSubstitution(line string) bool {
	return len(line) > 1 && line[0] == 's' && !isWordOrSpace(line[1])
}

func parseSubstitution(line string) (rule, error) {
	delim := line[1]
	pattern, rest, err := splitDelimited(line[2:], delim)
	if err != nil {
		return rule{}, fmt.Errorf("invalid regex pattern: %w", err)
	}
	replacement, rest, err := splitDelimited(rest, delim)
	if err != nil {
		return rule{}, fmt.Errorf("invalid regex replacement: %w", err)
	}

	flags := map[rune]bool{'i': true}
	all := false
	for _, flag := range strings.TrimSpace(rest) {
		switch flag {
		case 'i', 'm', 's':
			flags[flag] = true
		case 'g':
			all = true
		case ' ':
		default:
			return rule{}, fmt.Errorf("unsupported regex flag %q", flag)
		}
	}

	prefix := ""
	for _, flag := range []rune{'i', 'm', 's'} {
		if flags[flag] {
			prefix += string(flag)
		}
	}

	re, err := regexp.Compile("(?" + prefix + ")" + pattern)
	if err != nil {
		return rule{}, fmt.Errorf("invalid regex: %w", err)
	}
	return rule{re: re, replacement: replacement, all: all}, nil
}

// splitDelimited reads up to the next unescaped delim and returns the text
// before it and the remainder after it. Escapes are kept verbatim.
func splitDelimited(s string, delim byte) (string, string, error) {
	escaped := false
	for i := 0; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == delim:
			return s[:i], s[i+1:], nil
		}
	}
	return "", "", errors.New("unterminated expression")
}

func isWordOrSpace(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == ' ' || c == '\t'
}
