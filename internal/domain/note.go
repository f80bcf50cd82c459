package domain

import (
	"time"
)

// Note content types.
const (
	NoteTypeText  = "text"
	NoteTypeImage = "image"
	NoteTypeList  = "list"
)

// ValidNoteTypes returns all valid note content types.
func ValidNoteTypes() []string {
	return []string{NoteTypeText, NoteTypeImage, NoteTypeList}
}

// IsValidNoteType checks whether the given type is a valid note content type.
func IsValidNoteType(t string) bool {
	switch t {
	case NoteTypeText, NoteTypeImage, NoteTypeList:
		return true
	}
	return false
}

// Note represents a single note owned by a user. Exactly one owner exists
// per note; collaborators are tracked separately.
type Note struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Title      string     `json:"title"`
	Content    string     `json:"content,omitempty"`
	Type       string     `json:"type"`
	ImageURL   string     `json:"image_url,omitempty"`
	ListItems  []string   `json:"list_items,omitempty"`
	IsPinned   bool       `json:"is_pinned"`
	IsArchived bool       `json:"is_archived"`
	IsTrashed  bool       `json:"is_trashed"`
	TrashedAt  *time.Time `json:"trashed_at,omitempty"`
	Labels     []Label    `json:"labels,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsOwnedBy reports whether the given user is the note's owner.
func (n *Note) IsOwnedBy(userID string) bool {
	return n.UserID == userID
}
