package stage

// RoleAdmin is the supervisor role. It carries no station stage of its
// own; admin actions go through the override path.
const RoleAdmin = "admin"

// ForRole maps a worker role to its station stage. Station roles are
// named after their stage; the admin role has none.
func ForRole(role string) (Stage, bool) {
	s := Stage(role)
	if Valid(s) {
		return s, true
	}
	return "", false
}
