// Package user defines the account model used throughout the application,
// particularly for authentication, profile management and link ownership.
package user

import "time"

// Recognized profile themes.
const (
	ThemeLight    = "light"
	ThemeDark     = "dark"
	ThemeGradient = "gradient"
)

// User represents a registered account.
// The username is the unique key; links reference their owner by it.
type User struct {
	// Username is the unique identifier of the account.
	Username string `json:"username"`

	// PasswordHash is the bcrypt hash of the account password.
	// The raw password is never stored.
	PasswordHash string `json:"-"`

	DisplayName string `json:"displayName"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatarUrl"`

	// Theme is one of ThemeLight, ThemeDark, ThemeGradient.
	Theme string `json:"theme"`

	// IsPublic controls whether the profile and its links are visible to
	// anonymous visitors. Links inherit this flag; they carry no visibility
	// of their own.
	IsPublic bool `json:"isPublic"`

	IsAdmin bool `json:"isAdmin"`

	CreatedAt time.Time `json:"createdAt"`
}

// IsValidTheme reports whether theme is one of the recognized values.
func IsValidTheme(theme string) bool {
	return theme == ThemeLight || theme == ThemeDark || theme == ThemeGradient
}
