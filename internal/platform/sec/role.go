// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level carried in an access token.
type UserRole string

const (
	// Unrestricted system access, passes every chapter gate
	RoleAdmin UserRole = "admin"

	// Moderates community content; owns no chapters by default
	RoleModerator UserRole = "moderator"

	// Can upload chapters and manage the pages of chapters they uploaded
	RoleAuthor UserRole = "author"

	// Default role for readers
	RoleMember UserRole = "member"
)

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
// Unknown roles rank below every known role.
func (r UserRole) AtLeast(target UserRole) bool {
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r UserRole) level() int {
	switch r {
	case RoleAdmin:
		return 40
	case RoleModerator:
		return 30
	case RoleAuthor:
		return 20
	case RoleMember:
		return 10
	default:
		return 0
	}
}
