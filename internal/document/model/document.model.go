package model

import "time"

type CreateDocRequest struct {
	Title string `json:"title"`
}

type CreateDocResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	OwnerID      string    `json:"owner_id"`
	LastModified time.Time `json:"lastModified"`
}

// DocumentSummary is one row of the dashboard listing.
type DocumentSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LastModified time.Time `json:"lastModified"`
	Owned        bool      `json:"owned_by_current_user"`
}

type DocumentResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	LastModified time.Time `json:"lastModified"`
}

// UpdateDocRequest distinguishes an absent content key from an explicit
// empty string: clearing a document to "" is a valid edit and must
// persist just like a socket update would.
type UpdateDocRequest struct {
	Content *string `json:"content"`
	Title   *string `json:"title"`
}

type ShareRequest struct {
	DocumentID string `json:"document_id" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Permission string `json:"permission" validate:"omitempty,oneof=read write owner"`
}
