package model

import "time"

// Role values stored in users.role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// PermissionMap is the per-feature capability set of a non-admin user.
// Admins implicitly hold every permission.
type PermissionMap struct {
	Inventory  bool `json:"inventory"`
	Calendar   bool `json:"calendar"`
	Attendance bool `json:"attendance"`
	Logs       bool `json:"logs"`
}

// Has reports whether the named feature is granted. Feature names match the
// JSON keys above.
func (p PermissionMap) Has(feature string) bool {
	switch feature {
	case "inventory":
		return p.Inventory
	case "calendar":
		return p.Calendar
	case "attendance":
		return p.Attendance
	case "logs":
		return p.Logs
	}
	return false
}

// User mirrors the 'users' table.
//
// Password is stored and compared in plaintext. This is a known defect
// inherited from the existing dataset; it is preserved, not fixed, so that
// already-registered accounts keep working.
type User struct {
	ID          uint64        `json:"id"`
	Username    string        `json:"username"`
	Password    string        `json:"-"`
	Nickname    string        `json:"nickname"`
	Role        string        `json:"role"`
	IsApproved  bool          `json:"isApproved"`
	Permissions PermissionMap `json:"permissions"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Identity is the authenticated principal attached to a request, stored in
// the session and rebuilt from bearer tokens. Handlers trust it without
// re-verifying credentials.
type Identity struct {
	ID          uint64        `json:"id"`
	Username    string        `json:"username"`
	Nickname    string        `json:"nickname"`
	Role        string        `json:"role"`
	Permissions PermissionMap `json:"permissions"`
}

// IsAdmin reports whether the identity carries the admin role.
func (id Identity) IsAdmin() bool { return id.Role == RoleAdmin }

// Can reports whether the identity may use the named feature. Admins pass
// every check.
func (id Identity) Can(feature string) bool {
	return id.IsAdmin() || id.Permissions.Has(feature)
}

// IdentityOf derives the request identity from a stored user.
func IdentityOf(u User) Identity {
	return Identity{
		ID:          u.ID,
		Username:    u.Username,
		Nickname:    u.Nickname,
		Role:        u.Role,
		Permissions: u.Permissions,
	}
}
