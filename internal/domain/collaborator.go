package domain

import (
	"time"
)

// Collaborator permission levels. Permission is stored per collaborator
// record; a collaborator is never the note's owner.
const (
	PermissionView = "view"
	PermissionEdit = "edit"
)

// IsValidPermission checks whether the given permission level is known.
func IsValidPermission(p string) bool {
	return p == PermissionView || p == PermissionEdit
}

// Collaborator links a user to a note they have been granted access to.
// At most one record exists per (user, note) pair.
type Collaborator struct {
	ID         string    `json:"id"`
	NoteID     string    `json:"note_id"`
	UserID     string    `json:"user_id"`
	Permission string    `json:"permission"`
	CreatedAt  time.Time `json:"created_at"`

	// User carries the sanitized profile of the collaborating user when
	// records are listed alongside a note. Not persisted on the join row.
	User *User `json:"user,omitempty"`
}

// SharedNote is a note visible to a user through a collaborator grant,
// together with the owner's sanitized profile and the granted permission.
type SharedNote struct {
	Note       Note   `json:"note"`
	Owner      User   `json:"owner"`
	Permission string `json:"permission"`
}
