package plate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Rules describes which canonical strings count as plates for one
// jurisdiction.
type Rules struct {
	// Name identifies the locale table ("international", "strict", "custom").
	Name string `json:"name"`

	// MinLength and MaxLength bound the canonical length, inclusive.
	MinLength int `json:"min_length"`
	MaxLength int `json:"max_length"`

	// RequireLetter and RequireDigit demand at least one character of each
	// class. With both false a plate still needs one letter or one digit.
	RequireLetter bool `json:"require_letter"`
	RequireDigit  bool `json:"require_digit"`

	// Patterns are regular expressions matched against the whole
	// canonical string. Anchor them.
	Patterns []string `json:"patterns"`

	// Permissive accepts a string that matches no pattern when it is within
	// length bounds and more than half of its characters are digits.
	Permissive bool `json:"permissive"`
}

// International is the default table: short letter/digit groupings used
// across most jurisdictions, pure digit plates, and a broad alphanumeric
// catch-all.
func International() Rules {
	return Rules{
		Name:      "international",
		MinLength: 3,
		MaxLength: 12,
		Patterns: []string{
			`^[A-Z]{1,4}[0-9]{1,4}$`,
			`^[0-9]{1,4}[A-Z]{1,4}$`,
			`^[A-Z]{1,2}[0-9]{1,4}[A-Z]{0,2}$`,
			`^[0-9]{3,8}$`,
			`^[A-Z0-9]{3,10}$`,
		},
	}
}

// Strict accepts only mixed plates of 4 to 8 characters.
func Strict() Rules {
	return Rules{
		Name:          "strict",
		MinLength:     4,
		MaxLength:     8,
		RequireLetter: true,
		RequireDigit:  true,
		Patterns: []string{
			`^[A-Z]{2,3}[0-9]{1,4}$`,
			`^[A-Z]{1,2}[0-9]{3,4}$`,
			`^[0-9]{3,4}[A-Z]{1,2}$`,
		},
	}
}

var locales = map[string]func() Rules{
	"international": International,
	"strict":        Strict,
}

// Locale returns the named table.
func Locale(name string) (Rules, bool) {
	fn, ok := locales[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Rules{}, false
	}
	return fn(), true
}

// LocaleNames lists the built-in tables in sorted order.
func LocaleNames() []string {
	names := make([]string, 0, len(locales))
	for name := range locales {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validator checks canonical strings against compiled Rules.
type Validator struct {
	rules    Rules
	patterns []*regexp.Regexp
}

// NewValidator compiles the rule patterns.
func NewValidator(rules Rules) (*Validator, error) {
	if rules.MinLength < 1 {
		return nil, fmt.Errorf("min length must be at least 1, got %d", rules.MinLength)
	}
	if rules.MaxLength < rules.MinLength {
		return nil, fmt.Errorf("max length %d is below min length %d", rules.MaxLength, rules.MinLength)
	}

	compiled := make([]*regexp.Regexp, 0, len(rules.Patterns))
	for _, p := range rules.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to compile plate pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	if len(compiled) == 0 && !rules.Permissive {
		return nil, fmt.Errorf("rules %q accept nothing: no patterns and permissive fallback off", rules.Name)
	}

	return &Validator{rules: rules, patterns: compiled}, nil
}

// MustValidator is NewValidator for tables known to be valid.
func MustValidator(rules Rules) *Validator {
	v, err := NewValidator(rules)
	if err != nil {
		panic(err)
	}
	return v
}

// Rules returns the table the validator was built from.
func (v *Validator) Rules() Rules {
	return v.rules
}

// Valid reports whether text is an acceptable canonical plate.
func (v *Validator) Valid(text string) bool {
	ok, _ := v.Explain(text)
	return ok
}

// Explain is Valid plus a short reason for the verdict.
func (v *Validator) Explain(text string) (bool, string) {
	n := len(text)
	if n < v.rules.MinLength {
		return false, fmt.Sprintf("shorter than %d characters", v.rules.MinLength)
	}
	if n > v.rules.MaxLength {
		return false, fmt.Sprintf("longer than %d characters", v.rules.MaxLength)
	}

	letters, digits := 0, 0
	for i := 0; i < n; i++ {
		c := text[i]
		switch {
		case c >= 'A' && c <= 'Z':
			letters++
		case c >= '0' && c <= '9':
			digits++
		default:
			return false, fmt.Sprintf("non-canonical character %q", c)
		}
	}

	if letters == 0 && digits == 0 {
		return false, "no letters or digits"
	}
	if v.rules.RequireLetter && letters == 0 {
		return false, "no letter"
	}
	if v.rules.RequireDigit && digits == 0 {
		return false, "no digit"
	}

	for _, re := range v.patterns {
		if re.MatchString(text) {
			return true, "matches " + re.String()
		}
	}

	if v.rules.Permissive && digits*2 > n {
		return true, "permissive majority-digit fallback"
	}
	return false, "matches no plate pattern"
}
