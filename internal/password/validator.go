// Package password scores and validates passwords. It is a pure policy: no
// I/O, no shared state.
package password

import (
	"fmt"
	"regexp"
	"strings"
)

// Strength levels from VeryWeak (0) to VeryStrong (5).
const (
	VeryWeak = iota
	Weak
	Fair
	Good
	Strong
	VeryStrong
)

// Criteria configures password validation.
type Criteria struct {
	MinLength            int
	MaxLength            int
	RequireUppercase     bool
	RequireLowercase     bool
	RequireNumbers       bool
	RequireSpecialChars  bool
	MinSpecialChars      int
	DisallowCommon       bool
	DisallowPersonalInfo bool
}

// DefaultCriteria mirrors the registration policy.
func DefaultCriteria() Criteria {
	return Criteria{
		MinLength:            8,
		MaxLength:            128,
		RequireUppercase:     true,
		RequireLowercase:     true,
		RequireNumbers:       true,
		RequireSpecialChars:  true,
		MinSpecialChars:      1,
		DisallowCommon:       true,
		DisallowPersonalInfo: true,
	}
}

// UserInfo gives the validator context to reject passwords containing
// personal information. Both fields optional.
type UserInfo struct {
	Email    string
	FullName string
}

// Report is the full validation outcome.
type Report struct {
	Valid           bool     `json:"valid"`
	Errors          []string `json:"errors"`
	Strength        int      `json:"strength"`
	StrengthLabel   string   `json:"strengthLabel"`
	Suggestions     []string `json:"suggestions"`
	ScorePercentage float64  `json:"scorePercentage"`
}

var strengthLabels = map[int]string{
	VeryWeak:   "Very Weak",
	Weak:       "Weak",
	Fair:       "Fair",
	Good:       "Good",
	Strong:     "Strong",
	VeryStrong: "Very Strong",
}

var commonPasswords = map[string]struct{}{
	"password": {}, "123456": {}, "123456789": {}, "qwerty": {},
	"abc123": {}, "password123": {}, "admin": {}, "login": {},
	"welcome": {}, "monkey": {}, "1234567890": {}, "letmein": {},
	"dragon": {}, "master": {}, "shadow": {}, "1234567": {},
	"football": {}, "baseball": {}, "superman": {}, "access": {},
	"trustno1": {}, "batman": {}, "hello": {}, "zaq1zaq1": {},
}

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile("[!@#$%^&*()_+\\-=\\[\\]{};':\"\\\\|,.<>/?~`]")

	commonPatterns = []*regexp.Regexp{
		regexp.MustCompile(`12345|23456|34567|45678|56789|67890`),
		regexp.MustCompile(`abcde|bcdef|cdefg|defgh|efghi|fghij`),
		regexp.MustCompile(`qwert|werty|ertyu|rtyui|tyuio|yuiop`),
		regexp.MustCompile(`asdfg|sdfgh|dfghj|fghjk|ghjkl`),
		regexp.MustCompile(`zxcvb|xcvbn|cvbnm`),
	}
)

// Validator checks passwords against its criteria.
type Validator struct {
	criteria Criteria
}

func NewValidator(criteria Criteria) *Validator {
	return &Validator{criteria: criteria}
}

// Default returns a validator with DefaultCriteria.
func Default() *Validator {
	return NewValidator(DefaultCriteria())
}

// Validate checks the password and returns a full report including strength.
func (v *Validator) Validate(pw string, info *UserInfo) Report {
	var errs []string

	if len(pw) < v.criteria.MinLength {
		errs = append(errs, fmt.Sprintf("Password must be at least %d characters long", v.criteria.MinLength))
	}
	if len(pw) > v.criteria.MaxLength {
		errs = append(errs, fmt.Sprintf("Password must be no more than %d characters long", v.criteria.MaxLength))
	}
	if v.criteria.RequireUppercase && !upperRe.MatchString(pw) {
		errs = append(errs, "Password must contain at least one uppercase letter")
	}
	if v.criteria.RequireLowercase && !lowerRe.MatchString(pw) {
		errs = append(errs, "Password must contain at least one lowercase letter")
	}
	if v.criteria.RequireNumbers && !digitRe.MatchString(pw) {
		errs = append(errs, "Password must contain at least one number")
	}
	if v.criteria.RequireSpecialChars {
		if len(specialRe.FindAllString(pw, -1)) < v.criteria.MinSpecialChars {
			errs = append(errs, fmt.Sprintf("Password must contain at least %d special character(s)", v.criteria.MinSpecialChars))
		}
	}

	lower := strings.ToLower(pw)
	if v.criteria.DisallowCommon {
		if _, ok := commonPasswords[lower]; ok {
			errs = append(errs, "Password is too common. Please choose a more unique password")
		} else if hasRepeatedRun(pw) || matchesCommonPattern(lower) {
			errs = append(errs, "Password contains common patterns. Please avoid sequences or repeated characters")
		}
	}
	if v.criteria.DisallowPersonalInfo && info != nil && containsPersonalInfo(lower, info) {
		errs = append(errs, "Password should not contain personal information")
	}

	strength := calculateStrength(pw)
	return Report{
		Valid:           len(errs) == 0,
		Errors:          errs,
		Strength:        strength,
		StrengthLabel:   strengthLabels[strength],
		Suggestions:     suggestions(pw),
		ScorePercentage: float64(strength) / float64(VeryStrong) * 100,
	}
}

// hasRepeatedRun reports three or more identical consecutive runes. RE2 has
// no backreferences, so this cannot be a regexp.
func hasRepeatedRun(pw string) bool {
	var prev rune
	run := 0
	for _, r := range pw {
		if r == prev {
			run++
			if run >= 3 {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}

func matchesCommonPattern(lower string) bool {
	for _, re := range commonPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

func containsPersonalInfo(lowerPw string, info *UserInfo) bool {
	if info.Email != "" {
		local := strings.ToLower(strings.SplitN(info.Email, "@", 2)[0])
		if len(local) > 2 && strings.Contains(lowerPw, local) {
			return true
		}
	}
	if info.FullName != "" {
		for _, part := range strings.Fields(strings.ToLower(info.FullName)) {
			if len(part) > 2 && strings.Contains(lowerPw, part) {
				return true
			}
		}
	}
	return false
}

func calculateStrength(pw string) int {
	score := 0

	if len(pw) >= 8 {
		score++
	}
	if len(pw) >= 12 {
		score++
	}
	if len(pw) >= 16 {
		score++
	}

	charTypes := 0
	for _, re := range []*regexp.Regexp{upperRe, lowerRe, digitRe, specialRe} {
		if re.MatchString(pw) {
			charTypes++
		}
	}
	if charTypes >= 3 {
		score++
	}
	if charTypes == 4 {
		score++
	}

	if len(pw) >= 12 && charTypes >= 3 {
		if len(specialRe.FindAllString(pw, -1)) >= 2 && len(digitRe.FindAllString(pw, -1)) >= 2 {
			score++
		}
	}

	lower := strings.ToLower(pw)
	if hasRepeatedRun(pw) {
		score = max(0, score-1)
	}
	for _, re := range commonPatterns[:3] {
		if re.MatchString(lower) {
			score = max(0, score-1)
			break
		}
	}
	if _, ok := commonPasswords[lower]; ok {
		score = 0
	}

	return min(score, VeryStrong)
}

func suggestions(pw string) []string {
	var out []string

	if len(pw) < 12 {
		out = append(out, "Use at least 12 characters for better security")
	}
	if !upperRe.MatchString(pw) {
		out = append(out, "Add uppercase letters")
	}
	if !lowerRe.MatchString(pw) {
		out = append(out, "Add lowercase letters")
	}
	if !digitRe.MatchString(pw) {
		out = append(out, "Add numbers")
	}
	if !specialRe.MatchString(pw) {
		out = append(out, "Add special characters (!@#$%^&*)")
	}
	if hasRepeatedRun(pw) {
		out = append(out, "Avoid repeating characters")
	}
	if matchesCommonPattern(strings.ToLower(pw)) {
		out = append(out, "Avoid common patterns and sequences")
	}

	if len(out) > 3 {
		out = out[:3]
	}
	return out
}
