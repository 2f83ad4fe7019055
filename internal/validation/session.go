package validation

// SessionData is the identity extracted from a validated session.
type SessionData struct {
	Email  string  `json:"email"`
	UserID string  `json:"userId"`
	Role   Role    `json:"role"`
	Name   *string `json:"name"`
}

// IsAdmin reports whether the session belongs to an administrator.
func (s SessionData) IsAdmin() bool {
	return IsAdminRole(s.Role)
}

// ValidateSession checks the shape of a decoded session object:
// {"user": {"id", "email", "role", "name"?}}. It does not verify any
// signature; the caller must have done that already.
func ValidateSession(session any) Result[SessionData] {
	if session == nil {
		return fail[SessionData](newError(FieldSession, CodeRequired, "Session is required"))
	}
	m, isMap := session.(map[string]any)
	if !isMap {
		return fail[SessionData](newError(FieldSession, CodeInvalidType, "Session must be an object"))
	}

	rawUser, present := m["user"]
	if !present || rawUser == nil {
		return fail[SessionData](newError(FieldSessionUser, CodeRequired, "Session user is required"))
	}
	user, isMap := rawUser.(map[string]any)
	if !isMap {
		return fail[SessionData](newError(FieldSessionUser, CodeInvalidType, "Session user must be an object"))
	}

	var errs Errors
	data := SessionData{
		Email:  collect(&errs, ValidateEmail(user["email"])),
		UserID: collect(&errs, ValidateUserID(user["id"])),
		Role:   collect(&errs, ValidateRole(user["role"])),
	}
	if v := user["name"]; !isMissing(v) {
		name := collect(&errs, ValidateUserName(v))
		data.Name = &name
	}

	if len(errs) > 0 {
		return fail[SessionData](errs...)
	}
	return ok(data)
}
