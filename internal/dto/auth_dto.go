package dto

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 6

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Validate returns the message shown to the client, or "" when valid.
func (r *SignupRequest) Validate() string {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Name = strings.TrimSpace(r.Name)
	switch {
	case !emailPattern.MatchString(r.Email):
		return "Valid email is required"
	case len(r.Password) < minPasswordLength:
		return "Password must be at least 6 characters"
	case r.Name == "":
		return "Name is required"
	}
	return ""
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() string {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	switch {
	case !emailPattern.MatchString(r.Email):
		return "Valid email is required"
	case r.Password == "":
		return "Password is required"
	}
	return ""
}
