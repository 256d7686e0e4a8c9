package auth

import "unicode"

// PasswordStrength summarises how strong a candidate password is.
type PasswordStrength struct {
	Score    int      `json:"score"` // 0-4
	Feedback []string `json:"feedback"`
	Valid    bool     `json:"isValid"`
}

// CheckPasswordStrength scores a candidate password against the guild
// policy: at least 8 characters with upper, lower, digit, and special
// character classes present.
func CheckPasswordStrength(password string) PasswordStrength {
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	minLength := len(password) >= 8

	met := 0
	for _, ok := range []bool{minLength, hasUpper, hasLower, hasDigit, hasSpecial} {
		if ok {
			met++
		}
	}
	score := met
	if score > 4 {
		score = 4
	}

	var feedback []string
	if !minLength {
		feedback = append(feedback, "use at least 8 characters")
	}
	if !hasUpper {
		feedback = append(feedback, "include an uppercase letter")
	}
	if !hasLower {
		feedback = append(feedback, "include a lowercase letter")
	}
	if !hasDigit {
		feedback = append(feedback, "include a digit")
	}
	if !hasSpecial {
		feedback = append(feedback, "include a special character")
	}

	return PasswordStrength{
		Score:    score,
		Feedback: feedback,
		Valid:    score >= 4 && minLength,
	}
}
