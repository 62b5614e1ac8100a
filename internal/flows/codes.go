package flows

import "strings"

// Format rules for verification codes. Both checks run client-side before any
// network call; a code that fails here never reaches the backend.

// NormalizeTOTPCode strips surrounding whitespace from a user-entered TOTP code.
func NormalizeTOTPCode(code string) string {
	return strings.TrimSpace(code)
}

// ValidTOTPCode reports whether code is exactly digits numeric characters.
func ValidTOTPCode(code string, digits int) bool {
	if digits <= 0 {
		return false
	}
	if len(code) != digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// CanonicalizeBackupCode uppercases a user-entered backup code and strips
// whitespace and the display hyphen.
func CanonicalizeBackupCode(code string) string {
	s := strings.ToUpper(strings.TrimSpace(code))
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// ValidBackupCode reports whether a canonicalized code is exactly length
// uppercase alphanumeric characters.
func ValidBackupCode(code string, length int) bool {
	if length <= 0 {
		return false
	}
	if len(code) != length {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
