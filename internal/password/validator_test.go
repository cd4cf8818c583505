package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateStrongPassword(t *testing.T) {
	report := Default().Validate("Str0ng!Pass#27", nil)

	assert.True(t, report.Valid)
	assert.Empty(t, report.Errors)
	assert.GreaterOrEqual(t, report.Strength, Good)
}

func TestValidateTooShort(t *testing.T) {
	report := Default().Validate("S1!a", nil)

	assert.False(t, report.Valid)
	assert.Contains(t, report.Errors, "Password must be at least 8 characters long")
}

func TestValidateMissingCharacterClasses(t *testing.T) {
	tests := []struct {
		password string
		want     string
	}{
		{"alllowercase1!", "Password must contain at least one uppercase letter"},
		{"ALLUPPERCASE1!", "Password must contain at least one lowercase letter"},
		{"NoNumbersHere!", "Password must contain at least one number"},
		{"NoSpecials123A", "Password must contain at least 1 special character(s)"},
	}
	for _, tt := range tests {
		report := Default().Validate(tt.password, nil)
		assert.False(t, report.Valid, tt.password)
		assert.Contains(t, report.Errors, tt.want, tt.password)
	}
}

func TestValidateCommonPassword(t *testing.T) {
	report := Default().Validate("password", nil)

	assert.False(t, report.Valid)
	assert.Contains(t, report.Errors, "Password is too common. Please choose a more unique password")
	assert.Equal(t, VeryWeak, report.Strength)
}

func TestValidateSequencesRejected(t *testing.T) {
	report := Default().Validate("Abcdef12345!x", nil)

	assert.False(t, report.Valid)
	assert.Contains(t, report.Errors, "Password contains common patterns. Please avoid sequences or repeated characters")
}

func TestValidatePersonalInfo(t *testing.T) {
	info := &UserInfo{Email: "marisol@example.com", FullName: "Marisol Vega"}
	report := Default().Validate("Marisol#2024x!", info)

	assert.False(t, report.Valid)
	assert.Contains(t, report.Errors, "Password should not contain personal information")
}

func TestValidatePersonalInfoShortFragmentsIgnored(t *testing.T) {
	info := &UserInfo{Email: "ab@example.com", FullName: "Al Bo"}
	report := Default().Validate("Unrelated#Pw9z", info)

	assert.True(t, report.Valid)
}

func TestStrengthScoring(t *testing.T) {
	v := Default()

	weak := v.Validate("abcxyzgh", nil).Strength
	strong := v.Validate("V3ry&L0ng!Secure#Phrase9", nil).Strength

	assert.Less(t, weak, strong)
	assert.Equal(t, VeryStrong, strong)
}

func TestRepeatedRunRejected(t *testing.T) {
	report := Default().Validate("aaa1!Bcdef", nil)

	assert.False(t, report.Valid)
	assert.Contains(t, report.Errors, "Password contains common patterns. Please avoid sequences or repeated characters")
}

func TestRepeatedRunBoundary(t *testing.T) {
	// Two identical consecutive runes are fine; three are not.
	assert.False(t, hasRepeatedRun("G 2x ok!!"))
	assert.True(t, hasRepeatedRun("Gooo2x!"))
	assert.True(t, hasRepeatedRun("!!!"))
	assert.False(t, hasRepeatedRun(""))
	assert.False(t, hasRepeatedRun("ababab"))
}

func TestRepeatedCharactersPenalized(t *testing.T) {
	with := Default().Validate("Gooood#Pass19", nil)
	without := Default().Validate("Gourds#Pass19", nil)

	assert.Less(t, with.Strength, without.Strength)
}

func TestSuggestionsCapped(t *testing.T) {
	report := Default().Validate("aaa", nil)

	assert.NotEmpty(t, report.Suggestions)
	assert.LessOrEqual(t, len(report.Suggestions), 3)
}

func TestScorePercentage(t *testing.T) {
	report := Default().Validate("V3ry&L0ng!Secure#Phrase9", nil)
	assert.InDelta(t, 100.0, report.ScorePercentage, 0.01)
}
