package domain

// Profile is the signed-in account as reported by the backend.
type Profile struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// AuthState is a point-in-time view of a session's auth store.
type AuthState struct {
	LoggedIn bool     `json:"isLoggedIn"`
	Role     Role     `json:"role,omitempty"`
	Profile  *Profile `json:"profile"`
}
