package domain

// Role differentiates end-users from astrologers.
type Role string

const (
	RoleUser       Role = "user"
	RoleAstrologer Role = "astrologer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAstrologer
}

// ParseRole maps free-form input to a Role, defaulting to RoleUser.
func ParseRole(s string) Role {
	if Role(s) == RoleAstrologer {
		return RoleAstrologer
	}
	return RoleUser
}
