package validation

import (
	"regexp"
	"strings"
	"unicode"

	"ferremas-fulfillment/internal/apperrors"
)

// PasswordSymbols is the punctuation set a password must draw at least one
// character from.
const PasswordSymbols = "!@#$%^&*()-_=+[]{};:'\",.<>/?\\|`~"

var phonePattern = regexp.MustCompile(`^(\+?56)?9\d{8}$`)

// RUT validates a Chilean national identifier and returns it normalized as
// "digits-checkchar" (uppercase, no dots). The check character is verified
// with the standard mod-11 algorithm: digits weighted right-to-left with
// multipliers cycling 2..7, remainder 11 maps to "0" and 10 to "K".
func RUT(raw string) (string, error) {
	cleaned := strings.ToUpper(strings.NewReplacer(".", "", "-", "", " ", "").Replace(raw))
	if len(cleaned) < 8 || len(cleaned) > 9 {
		return "", apperrors.Validation("rut must have 7 or 8 digits plus a check character")
	}

	body := cleaned[:len(cleaned)-1]
	check := cleaned[len(cleaned)-1:]

	for _, r := range body {
		if r < '0' || r > '9' {
			return "", apperrors.Validation("rut body must be numeric")
		}
	}
	if check != "K" && (check[0] < '0' || check[0] > '9') {
		return "", apperrors.Validation("rut check character must be a digit or K")
	}

	if computeRUTCheck(body) != check {
		return "", apperrors.Validation("rut check character does not match")
	}

	return body + "-" + check, nil
}

func computeRUTCheck(body string) string {
	sum := 0
	multiplier := 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * multiplier
		multiplier++
		if multiplier > 7 {
			multiplier = 2
		}
	}

	switch rest := 11 - sum%11; rest {
	case 11:
		return "0"
	case 10:
		return "K"
	default:
		return string(rune('0' + rest))
	}
}

// Email validates an email address: a single @, no whitespace, and at least
// one dot in the domain segment.
func Email(raw string) (string, error) {
	addr := strings.TrimSpace(raw)
	if addr == "" {
		return "", apperrors.Validation("email is required")
	}
	if strings.ContainsAny(addr, " \t\n") {
		return "", apperrors.Validation("email must not contain whitespace")
	}
	if strings.Count(addr, "@") != 1 {
		return "", apperrors.Validation("email must contain exactly one @")
	}

	parts := strings.SplitN(addr, "@", 2)
	if parts[0] == "" {
		return "", apperrors.Validation("email local part is empty")
	}
	if !strings.Contains(parts[1], ".") || len(parts[1]) < 3 {
		return "", apperrors.Validation("email domain must contain a dot")
	}

	return addr, nil
}

// Password checks password strength. Each rule fails with its own message so
// callers can tell the user exactly what is missing.
func Password(raw string) error {
	if len(raw) < 8 {
		return apperrors.Validation("password must be at least 8 characters")
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range raw {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(PasswordSymbols, r):
			hasSymbol = true
		}
	}

	switch {
	case !hasUpper:
		return apperrors.Validation("password must contain an uppercase letter")
	case !hasLower:
		return apperrors.Validation("password must contain a lowercase letter")
	case !hasDigit:
		return apperrors.Validation("password must contain a digit")
	case !hasSymbol:
		return apperrors.Validation("password must contain a symbol")
	}
	return nil
}

// Phone validates a Chilean mobile number and returns it normalized to
// "+569XXXXXXXX". Spaces and hyphens are stripped before matching.
func Phone(raw string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(raw))
	if !phonePattern.MatchString(cleaned) {
		return "", apperrors.Validation("phone must be a Chilean mobile number (9 followed by 8 digits)")
	}

	digits := strings.TrimPrefix(strings.TrimPrefix(cleaned, "+"), "56")
	return "+56" + digits, nil
}
