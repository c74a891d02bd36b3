package model

import "time"

// PublicShare is the sharedWith entry that makes a note visible to everyone.
const PublicShare = "*"

type Note struct {
	ID           string    `json:"id"`
	Owner        string    `json:"owner"`
	CreatorName  string    `json:"creatorName,omitempty"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Tags         []string  `json:"tags"`
	Shared       bool      `json:"shared"`
	SharedWith   []string  `json:"sharedWith"`
	Likes        []string  `json:"likes"`
	LikedByNames []string  `json:"likedByNames"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (n Note) IsPublic() bool {
	return containsString(n.SharedWith, PublicShare)
}

func (n Note) IsSharedWith(email string) bool {
	return email != "" && containsString(n.SharedWith, email)
}

func (n Note) LikedBy(userID string) bool {
	return containsString(n.Likes, userID)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type NoteSort string

const (
	SortRecent  NoteSort = "recent"
	SortTitle   NoteSort = "title"
	SortCreated NoteSort = "created"
)

type CreateNoteRequest struct {
	Title      string   `json:"title" binding:"required,max=500"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
	Shared     bool     `json:"shared"`
	SharedWith []string `json:"sharedWith"`
}

type UpdateNoteRequest struct {
	Title      *string   `json:"title" binding:"omitempty,max=500"`
	Content    *string   `json:"content"`
	Tags       *[]string `json:"tags"`
	Shared     *bool     `json:"shared"`
	SharedWith *[]string `json:"sharedWith"`
}

type ShareNoteRequest struct {
	Emails []string `json:"emails" binding:"required,min=1,dive,email"`
}

type NoteVisibilityRequest struct {
	Share *bool `json:"share" binding:"required"`
}

// NoteCollections groups the three note views a user sees.
type NoteCollections struct {
	Notes       []Note `json:"notes"`
	SharedNotes []Note `json:"sharedNotes"`
	PublicNotes []Note `json:"publicNotes"`
}
