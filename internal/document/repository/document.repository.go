package repository

import (
	"database/sql"
	"time"

	"inkpad/pkg/logger"
	"inkpad/store"
)

type DocumentRepository struct {
	DB *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{DB: db}
}

func (r *DocumentRepository) Create(doc store.Document) error {
	_, err := r.DB.Exec(`INSERT INTO documents (id, owner_id, title, content, last_modified) VALUES ($1, $2, $3, $4, $5)`,
		doc.ID, doc.OwnerID, doc.Title, doc.Content, doc.LastModified)
	if err != nil {
		logger.Sugar.Errorf("Failed to create document: %v", err)
	}
	return err
}

func (r *DocumentRepository) Get(docID string) (store.Document, error) {
	var doc store.Document
	err := r.DB.QueryRow(`SELECT id, owner_id, title, content, last_modified FROM documents WHERE id = $1`, docID).
		Scan(&doc.ID, &doc.OwnerID, &doc.Title, &doc.Content, &doc.LastModified)
	if err != nil && err != sql.ErrNoRows {
		logger.Sugar.Errorf("Failed to get document %s: %v", docID, err)
	}
	return doc, err
}

func (r *DocumentRepository) GetOwnerID(docID string) (string, error) {
	var ownerID string
	err := r.DB.QueryRow(`SELECT owner_id FROM documents WHERE id = $1`, docID).Scan(&ownerID)
	if err != nil && err != sql.ErrNoRows {
		logger.Sugar.Errorf("Failed to get owner ID for doc %s: %v", docID, err)
	}
	return ownerID, err
}

// ListForUser returns documents the user owns plus documents shared with
// them, newest first.
func (r *DocumentRepository) ListForUser(userID string) ([]store.Document, error) {
	query := `
		SELECT id, owner_id, title, last_modified FROM documents WHERE owner_id = $1
		UNION
		SELECT d.id, d.owner_id, d.title, d.last_modified FROM documents d
			JOIN shares s ON d.id = s.document_id WHERE s.user_id = $1
		ORDER BY last_modified DESC`
	rows, err := r.DB.Query(query, userID)
	if err != nil {
		logger.Sugar.Errorf("Failed to list documents for user %s: %v", userID, err)
		return nil, err
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var doc store.Document
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.Title, &doc.LastModified); err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CheckAccess reports whether the user owns the document or holds any
// share row for it. A share row may outlive its document; it still grants
// access so the socket path can recreate the document on the next update.
func (r *DocumentRepository) CheckAccess(docID, userID string) (bool, error) {
	var hasAccess bool
	err := r.DB.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM documents WHERE id = $1 AND owner_id = $2
			UNION
			SELECT 1 FROM shares WHERE document_id = $1 AND user_id = $2
		)`, docID, userID).Scan(&hasAccess)
	if err != nil {
		logger.Sugar.Errorf("Failed to check access for user %s on doc %s: %v", userID, docID, err)
	}
	return hasAccess, err
}

// ApplyUpdate persists an edit last-writer-wins. An unseen document id is
// created on the fly with the caller as owner. The title only changes
// when the edit carries one; the resulting title is returned so callers
// can echo it.
func (r *DocumentRepository) ApplyUpdate(docID, ownerID, content string, title *string, modified time.Time) (string, error) {
	var newTitle sql.NullString
	if title != nil {
		newTitle = sql.NullString{String: *title, Valid: true}
	}

	var resultTitle string
	err := r.DB.QueryRow(`
		INSERT INTO documents (id, owner_id, title, content, last_modified)
		VALUES ($1, $2, COALESCE($3, 'Untitled Document'), $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content,
		    title = COALESCE($3, documents.title),
		    last_modified = EXCLUDED.last_modified
		RETURNING title`,
		docID, ownerID, newTitle, content, modified).Scan(&resultTitle)
	if err != nil {
		logger.Sugar.Errorf("Failed to apply update to doc %s: %v", docID, err)
	}
	return resultTitle, err
}

// Delete removes the document together with its share rows so no grant is
// left pointing at a missing id.
func (r *DocumentRepository) Delete(docID string) error {
	tx, err := r.DB.Begin()
	if err != nil {
		logger.Sugar.Errorf("Failed to begin delete of doc %s: %v", docID, err)
		return err
	}
	if _, err := tx.Exec(`DELETE FROM shares WHERE document_id = $1`, docID); err != nil {
		tx.Rollback()
		logger.Sugar.Errorf("Failed to delete shares for doc %s: %v", docID, err)
		return err
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE id = $1`, docID); err != nil {
		tx.Rollback()
		logger.Sugar.Errorf("Failed to delete doc %s: %v", docID, err)
		return err
	}
	return tx.Commit()
}

func (r *DocumentRepository) GetUserByEmail(email string) (string, error) {
	var userID string
	err := r.DB.QueryRow(`SELECT id FROM users WHERE email = $1`, email).Scan(&userID)
	if err != nil && err != sql.ErrNoRows {
		logger.Sugar.Errorf("Failed to get user by email %s: %v", email, err)
	}
	return userID, err
}

func (r *DocumentRepository) AddShare(share store.Share) error {
	_, err := r.DB.Exec(`INSERT INTO shares (user_id, document_id, permission) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, document_id) DO UPDATE SET permission = $3`,
		share.UserID, share.DocumentID, share.Permission)
	if err != nil {
		logger.Sugar.Errorf("Failed to share doc %s with user %s: %v", share.DocumentID, share.UserID, err)
	}
	return err
}
