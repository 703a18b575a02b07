package domain

// Role is an actor's back-office role.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Rank orders roles; a higher rank may do everything a lower one can.
// Unknown roles rank 0.
func (r Role) Rank() int {
	switch r {
	case RoleEmployee:
		return 1
	case RoleManager:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

// Actor identifies who performs an operation.
type Actor struct {
	ID   string
	Role Role
}

// SystemActor is used for changes made by the service itself.
var SystemActor = Actor{ID: "system", Role: RoleAdmin}
