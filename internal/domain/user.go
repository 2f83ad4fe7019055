package domain

import (
	"strings"
	"time"

	"github.com/lucsky/cuid"

	"github.com/palabeo/palabeo/internal/validation"
)

// User is the core domain entity representing a learner's account.
type User struct {
	ID           string // CUID
	Email        string
	PasswordHash string // Never expose this externally
	Name         *string
	Role         validation.Role

	// The language the interface is shown in and the one being learned.
	UserLanguage    validation.Language
	LearnedLanguage validation.Language

	CreatedAt time.Time
	UpdatedAt time.Time

	// Version for optimistic locking
	Version int
}

// NewUser builds a user from already validated fields. Missing languages
// fall back to the application defaults and an unknown role becomes USER.
func NewUser(email string, name *string, role validation.Role, userLang, learnedLang validation.Language) *User {
	if !role.Valid() {
		role = validation.RoleUser
	}
	if userLang == "" {
		userLang = validation.DefaultUserLanguage
	}
	if learnedLang == "" {
		learnedLang = validation.DefaultLearnedLanguage
	}

	now := time.Now().UTC()
	return &User{
		ID:              cuid.New(),
		Email:           strings.ToLower(email),
		Name:            name,
		Role:            role,
		UserLanguage:    userLang,
		LearnedLanguage: learnedLang,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}
}

// IsAdmin reports whether the user may manage other accounts.
func (u *User) IsAdmin() bool {
	return validation.IsAdminRole(u.Role)
}

// Apply merges a validated partial update into u. The resulting pair of
// languages must still differ, so a single-language update is checked
// against the stored value of the other one.
func (u *User) Apply(update validation.UserUpdateData) error {
	userLang, learnedLang := u.UserLanguage, u.LearnedLanguage
	if update.UserLanguage != nil {
		userLang = *update.UserLanguage
	}
	if update.LearnedLanguage != nil {
		learnedLang = *update.LearnedLanguage
	}
	if userLang == learnedLang {
		return validation.Errors{{
			Field:   validation.FieldLanguages,
			Code:    validation.CodeSameLanguages,
			Message: "Source and target languages must be different",
		}}
	}

	if update.Name != nil {
		name := *update.Name
		u.Name = &name
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	u.UserLanguage = userLang
	u.LearnedLanguage = learnedLang
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// SessionClaims is the identity embedded in a session token. It has the
// shape validation.ValidateSession expects under "user".
func (u *User) SessionClaims() map[string]any {
	claims := map[string]any{
		"id":    u.ID,
		"email": u.Email,
		"role":  string(u.Role),
	}
	if u.Name != nil {
		claims["name"] = *u.Name
	}
	return claims
}
