package arkive

import (
	"fmt"
	"strings"

	"github.com/moby/patternmatcher"
)

// Selector decides whether an entry name is included.
type Selector interface {
	Match(name string) bool
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(name string) bool

// Match calls f.
func (f SelectorFunc) Match(name string) bool { return f(name) }

// MatchAll selects every name.
var MatchAll Selector = SelectorFunc(func(string) bool { return true })

// patternSelector matches names against include and exclude pattern sets.
type patternSelector struct {
	include *patternmatcher.PatternMatcher
	exclude *patternmatcher.PatternMatcher
}

// Patterns returns a selector that includes names matching any include
// pattern (all names when include is empty) and not matching any exclude
// pattern. Patterns use the dockerignore syntax: "*" within a segment,
// "**" across segments, and a match on a directory covers its contents.
func Patterns(include, exclude []string) (Selector, error) {
	s := &patternSelector{}
	if len(include) > 0 {
		pm, err := patternmatcher.New(include)
		if err != nil {
			return nil, fmt.Errorf("%w: include patterns: %w", ErrInvalidOption, err)
		}
		s.include = pm
	}
	if len(exclude) > 0 {
		pm, err := patternmatcher.New(exclude)
		if err != nil {
			return nil, fmt.Errorf("%w: exclude patterns: %w", ErrInvalidOption, err)
		}
		s.exclude = pm
	}
	return s, nil
}

func (s *patternSelector) Match(name string) bool {
	name = strings.Trim(name, "/")
	if name == "" {
		return false
	}
	if s.include != nil {
		ok, err := s.include.MatchesOrParentMatches(name)
		if err != nil || !ok {
			return false
		}
	}
	if s.exclude != nil {
		ok, err := s.exclude.MatchesOrParentMatches(name)
		if err != nil || ok {
			return false
		}
	}
	return true
}
