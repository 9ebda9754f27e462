package domain

// Role groups users by privilege. RoleProfessor moderates content; RoleStudent contributes.
type Role struct {
	ID   int64
	Name string
}

const (
	RoleProfessor int64 = 1
	RoleStudent   int64 = 2
)

// DefaultRoles are seeded when the schema is initialised.
var DefaultRoles = []Role{
	{ID: RoleProfessor, Name: "professor"},
	{ID: RoleStudent, Name: "student"},
}
