package domain

import (
	"time"
)

// Label represents a user-defined tag that can be attached to notes.
// Label names are unique per owner.
type Label struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
