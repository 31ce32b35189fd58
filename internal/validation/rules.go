// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	usernameRegex    = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	passwordCharset  = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]+$`)
	displayNameRegex = regexp.MustCompile(`^[\p{L}\p{N}\s._-]+$`)
)

// Length limits shared by the request structs and the rule functions.
const (
	UsernameMin      = 3
	UsernameMax      = 32
	PasswordMin      = 8
	PasswordMax      = 100
	EmailMax         = 100
	DisplayNameMin   = 2
	DisplayNameMax   = 50
	CommunityNameMin = 2
	CommunityNameMax = 40
)

// PasswordSpecials lists the accepted special characters.
const PasswordSpecials = "@$!%*?&"

// ValidatePassword checks if a password meets security requirements
func ValidatePassword(password string) error {
	if len(password) < PasswordMin {
		return fmt.Errorf("password must be at least %d characters long", PasswordMin)
	}
	if len(password) > PasswordMax {
		return fmt.Errorf("password must not exceed %d characters", PasswordMax)
	}
	if !passwordCharset.MatchString(password) {
		return fmt.Errorf("password may only contain letters, digits, and %s", PasswordSpecials)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(PasswordSpecials, r):
			hasSpecial = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return fmt.Errorf("password must contain at least one uppercase letter, one lowercase letter, one digit, and one special character (%s)", PasswordSpecials)
	}
	return nil
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if len(username) < UsernameMin || len(username) > UsernameMax {
		return fmt.Errorf("username must be between %d and %d characters", UsernameMin, UsernameMax)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, underscores, and hyphens")
	}
	return nil
}

// ValidateEmail checks email format and length
func ValidateEmail(email string) error {
	if len(email) > EmailMax {
		return fmt.Errorf("email must not exceed %d characters", EmailMax)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return fmt.Errorf("email should be valid")
	}
	return nil
}

// ValidateDisplayName checks the public display name.
func ValidateDisplayName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < DisplayNameMin || n > DisplayNameMax {
		return fmt.Errorf("display name must be between %d and %d characters", DisplayNameMin, DisplayNameMax)
	}
	if !displayNameRegex.MatchString(name) {
		return fmt.Errorf("display name can only contain letters, numbers, spaces, dots, underscores, and hyphens")
	}
	return nil
}

// ValidateCommunityName checks a community name. Names are used as a URL
// path segment so they cannot contain slashes or surrounding whitespace.
func ValidateCommunityName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("community name is required")
	}
	n := utf8.RuneCountInString(name)
	if n < CommunityNameMin || n > CommunityNameMax {
		return fmt.Errorf("community name must be between %d and %d characters", CommunityNameMin, CommunityNameMax)
	}
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("community name cannot start or end with whitespace")
	}
	if strings.ContainsAny(name, `/\?#%`) {
		return fmt.Errorf("community name cannot contain / \\ ? # or %%")
	}
	return nil
}
