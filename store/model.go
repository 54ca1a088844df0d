package store

import "time"

const (
	PermissionRead  = "read"
	PermissionWrite = "write"
	PermissionOwner = "owner"

	DefaultTitle = "Untitled Document"
)

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Password string `json:"-"` // bcrypt hash, never serialized
}

type Document struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	LastModified time.Time `json:"lastModified"`
}

// Share grants a non-owner user access to a document. Ownership implies
// full access without a share row.
type Share struct {
	UserID     string `json:"user_id"`
	DocumentID string `json:"document_id"`
	Permission string `json:"permission"`
}

func ValidPermission(p string) bool {
	return p == PermissionRead || p == PermissionWrite || p == PermissionOwner
}
