package dto

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned on successful login. ExpiresIn is in minutes.
type LoginResponse struct {
	JWT       string `json:"jwt"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
}

// RegisterRequest payload for registering a researcher.
type RegisterRequest struct {
	Email       *string `json:"email"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Affiliation *string `json:"affiliation"`
}

// UpdateUserRequest payload for updating personal details.
type UpdateUserRequest struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Affiliation *string `json:"affiliation"`
}

// ChangePasswordRequest payload for changing a password.
type ChangePasswordRequest struct {
	Username    string `json:"username"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// UserResponse is the public view of a directory user.
type UserResponse struct {
	ID          string `json:"user_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Affiliation string `json:"affiliation"`
	Role        string `json:"role"`
}

// Missing returns the JSON names of the nil fields of r.
func (r RegisterRequest) Missing() []string {
	return missing(map[string]*string{
		"email":       r.Email,
		"first_name":  r.FirstName,
		"last_name":   r.LastName,
		"affiliation": r.Affiliation,
	})
}

// Missing returns the JSON names of the nil fields of r.
func (r UpdateUserRequest) Missing() []string {
	return missing(map[string]*string{
		"first_name":  r.FirstName,
		"last_name":   r.LastName,
		"affiliation": r.Affiliation,
	})
}

func missing(fields map[string]*string) []string {
	var out []string
	for _, name := range []string{"email", "first_name", "last_name", "affiliation"} {
		if v, ok := fields[name]; ok && v == nil {
			out = append(out, name)
		}
	}
	return out
}

// Deref returns *s or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
