// Package models defines server-side data models persisted in the database
// or attached to authenticated requests.
package models

import "time"

// Language preferences accepted at registration and on profile updates.
var Languages = []string{"English", "French", "Fon", "Yoruba"}

// DefaultLanguage is assigned when registration omits a preference.
const DefaultLanguage = "English"

// User is the credential-store record. PasswordHash and the reset fields are
// write-only from the API's point of view; use Public before returning a
// User to any caller.
type User struct {
	ID                   string    `json:"_id"`
	UserName             string    `json:"username"`
	Email                string    `json:"email"`
	PasswordHash         string    `json:"-"`
	Role                 Role      `json:"role"`
	FirstName            string    `json:"firstName,omitempty"`
	LastName             string    `json:"lastName,omitempty"`
	LanguagePreference   string    `json:"languagePreference"`
	VoicePreference      string    `json:"voicePreference,omitempty"`
	ImageGenerationStyle string    `json:"imageGenerationStyle,omitempty"`
	RegistrationDate     time.Time `json:"registrationDate"`
	UpdatedAt            time.Time `json:"updatedAt"`

	ResetPasswordToken  string     `json:"-"`
	ResetPasswordExpire *time.Time `json:"-"`
}

// Public returns a copy of u without the password hash and reset state.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = ""
	c.ResetPasswordToken = ""
	c.ResetPasswordExpire = nil
	return &c
}

// ProfileUpdate lists the only user fields mutable through the profile
// path. Nil pointers leave the stored value unchanged.
type ProfileUpdate struct {
	Email                *string
	FirstName            *string
	LastName             *string
	LanguagePreference   *string
	VoicePreference      *string
	ImageGenerationStyle *string
}

// Empty reports whether the update changes nothing.
func (p ProfileUpdate) Empty() bool {
	return p.Email == nil && p.FirstName == nil && p.LastName == nil &&
		p.LanguagePreference == nil && p.VoicePreference == nil && p.ImageGenerationStyle == nil
}

// IsLanguage reports whether s is one of Languages.
func IsLanguage(s string) bool {
	for _, l := range Languages {
		if l == s {
			return true
		}
	}
	return false
}
