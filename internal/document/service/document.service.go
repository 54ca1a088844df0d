package service

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"inkpad/internal/document/model"
	"inkpad/internal/document/repository"
	"inkpad/socket"
	"inkpad/store"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrSelfShare         = errors.New("cannot share a document with yourself")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidPermission = errors.New("invalid permission")
)

type DocumentService struct {
	Repo *repository.DocumentRepository
	Hub  *socket.Hub
}

func NewDocumentService(repo *repository.DocumentRepository, hub *socket.Hub) *DocumentService {
	return &DocumentService{Repo: repo, Hub: hub}
}

func (s *DocumentService) Create(userID, title string) (store.Document, error) {
	if title == "" {
		title = store.DefaultTitle
	}
	doc := store.Document{
		ID:           uuid.NewString(),
		OwnerID:      userID,
		Title:        title,
		Content:      "",
		LastModified: time.Now().UTC(),
	}
	if err := s.Repo.Create(doc); err != nil {
		return store.Document{}, err
	}
	return doc, nil
}

func (s *DocumentService) List(userID string) ([]model.DocumentSummary, error) {
	docs, err := s.Repo.ListForUser(userID)
	if err != nil {
		return nil, err
	}
	summaries := make([]model.DocumentSummary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, model.DocumentSummary{
			ID:           doc.ID,
			Title:        doc.Title,
			LastModified: doc.LastModified,
			Owned:        doc.OwnerID == userID,
		})
	}
	return summaries, nil
}

// Get enforces the same owner-or-any-grant rule as the socket attach
// gate. A document the caller may not see answers the same as one that
// does not exist.
func (s *DocumentService) Get(docID, userID string) (store.Document, error) {
	ok, err := s.Repo.CheckAccess(docID, userID)
	if err != nil {
		return store.Document{}, err
	}
	if !ok {
		return store.Document{}, ErrNotFound
	}
	doc, err := s.Repo.Get(docID)
	if err == sql.ErrNoRows {
		return store.Document{}, ErrNotFound
	}
	return doc, err
}

// Update is the REST edit path: owner only, same persist semantics as a
// socket update, and the result is echoed to live viewers through the
// hub.
func (s *DocumentService) Update(docID, userID, content string, title *string) (store.Document, error) {
	ownerID, err := s.Repo.GetOwnerID(docID)
	if err == sql.ErrNoRows {
		return store.Document{}, ErrNotFound
	}
	if err != nil {
		return store.Document{}, err
	}
	if ownerID != userID {
		return store.Document{}, ErrNotFound
	}

	modified := time.Now().UTC()
	resultTitle, err := s.Repo.ApplyUpdate(docID, ownerID, content, title, modified)
	if err != nil {
		return store.Document{}, err
	}

	s.Hub.Broadcast(socket.Message{
		Type:         socket.TypeUpdate,
		DocumentID:   docID,
		Content:      content,
		Title:        resultTitle,
		LastModified: modified,
	}, docID, nil)

	return store.Document{ID: docID, OwnerID: ownerID, Title: resultTitle, Content: content, LastModified: modified}, nil
}

func (s *DocumentService) Delete(docID, userID string) error {
	ownerID, err := s.Repo.GetOwnerID(docID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if ownerID != userID {
		return ErrNotFound
	}

	if err := s.Repo.Delete(docID); err != nil {
		return err
	}
	s.Hub.RemoveDocument(docID)
	return nil
}

func (s *DocumentService) Share(user store.User, req model.ShareRequest) error {
	if strings.EqualFold(strings.TrimSpace(req.Email), user.Email) {
		return ErrSelfShare
	}

	permission := req.Permission
	if permission == "" {
		permission = store.PermissionWrite
	}
	if !store.ValidPermission(permission) {
		return ErrInvalidPermission
	}

	ownerID, err := s.Repo.GetOwnerID(req.DocumentID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if ownerID != user.ID {
		return ErrNotFound
	}

	targetID, err := s.Repo.GetUserByEmail(strings.TrimSpace(req.Email))
	if err == sql.ErrNoRows {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	return s.Repo.AddShare(store.Share{
		UserID:     targetID,
		DocumentID: req.DocumentID,
		Permission: permission,
	})
}
