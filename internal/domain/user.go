package domain

import "time"

// UserLocationTable joins users to their locations
const UserLocationTable = "users_user_locations"

const (
	RoleMember    = "member"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// User owns ads and is linked to any number of locations
type User struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	FirstName string     `gorm:"size:100" json:"first_name"`
	LastName  string     `gorm:"size:100" json:"last_name"`
	Username  string     `gorm:"size:100;index" json:"username"`
	Password  string     `gorm:"size:200" json:"-"` // stored as received
	Role      string     `gorm:"size:16;not null;default:'member'" json:"role"`
	Age       int        `json:"age"`
	Locations []Location `gorm:"many2many:users_user_locations;" json:"locations"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName Specify table name
func (User) TableName() string {
	return "users_user"
}

// LocationNames returns the names of the loaded locations in load order
func (u *User) LocationNames() []string {
	names := make([]string, 0, len(u.Locations))
	for _, loc := range u.Locations {
		names = append(names, loc.Name)
	}
	return names
}

// ValidRole reports whether role is one of the known roles
func ValidRole(role string) bool {
	switch role {
	case RoleMember, RoleModerator, RoleAdmin:
		return true
	}
	return false
}
