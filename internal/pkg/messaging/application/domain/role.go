package messaging

// Role identifies which side of the platform an identity belongs to.
type Role string

const (
	RoleCorporate Role = "CORPORATE"
	RoleNGO       Role = "NGO"
	RoleSystem    Role = "SYSTEM"
	RoleAdmin     Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCorporate, RoleNGO, RoleSystem, RoleAdmin:
		return true
	}
	return false
}

// Counterpart returns the other side of a 1:1 conversation room.
// Only CORPORATE and NGO participate in rooms, so only those two map.
func Counterpart(r Role) (Role, bool) {
	switch r {
	case RoleCorporate:
		return RoleNGO, true
	case RoleNGO:
		return RoleCorporate, true
	}
	return "", false
}
