package domain

import (
	"regexp"
	"strings"
	"time"
)

// Contact represents a single email recipient. There is exactly one Contact
// per normalized email address.
type Contact struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Opened        bool       `json:"opened"`
	Clicked       bool       `json:"clicked"`
	LastOpenedAt  *time.Time `json:"lastOpenedAt"`
	LastClickedAt *time.Time `json:"lastClickedAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// ContactSummary is the public projection returned by contact filters.
type ContactSummary struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Summary returns the name/email projection of the contact.
func (c Contact) Summary() ContactSummary {
	return ContactSummary{Name: c.Name, Email: c.Email}
}

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// NormalizeEmail trims surrounding whitespace and lowercases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether a normalized address matches the accepted
// (deliberately lax) email shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
