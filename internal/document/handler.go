package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"inkpad/internal/document/model"
	"inkpad/internal/document/service"
	"inkpad/middleware"
	"inkpad/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type DocumentHandler struct {
	Service  *service.DocumentService
	Validate *validator.Validate
}

func NewDocumentHandler(svc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{Service: svc, Validate: validator.New()}
}

func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req model.CreateDocRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // Ignore error, title defaults

	doc, err := h.Service.Create(user.ID, req.Title)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to create document: %v", err)
		http.Error(w, "Failed to create document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(model.CreateDocResponse{
		ID:           doc.ID,
		Title:        doc.Title,
		OwnerID:      doc.OwnerID,
		LastModified: doc.LastModified,
	})
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	docs, err := h.Service.List(user.ID)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to list documents: %v", err)
		http.Error(w, "Failed to list documents", http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []model.DocumentSummary{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(docs)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	docID := chi.URLParam(r, "documentId")

	doc, err := h.Service.Get(docID, user.ID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.Error(w, "Document not found", http.StatusNotFound)
			return
		}
		logger.Sugar.Errorf("Handler: Failed to get document %s: %v", docID, err)
		http.Error(w, "Failed to get document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model.DocumentResponse{
		ID:           doc.ID,
		Title:        doc.Title,
		Content:      doc.Content,
		LastModified: doc.LastModified,
	})
}

func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	docID := chi.URLParam(r, "documentId")

	var req model.UpdateDocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Content == nil {
		http.Error(w, "Content is required", http.StatusBadRequest)
		return
	}

	if _, err := h.Service.Update(docID, user.ID, *req.Content, req.Title); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.Error(w, "Document not found", http.StatusNotFound)
			return
		}
		logger.Sugar.Errorf("Handler: Failed to update document %s: %v", docID, err)
		http.Error(w, "Failed to update document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	docID := chi.URLParam(r, "documentId")

	if err := h.Service.Delete(docID, user.ID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.Error(w, "Document not found", http.StatusNotFound)
			return
		}
		logger.Sugar.Errorf("Handler: Failed to delete document %s: %v", docID, err)
		http.Error(w, "Failed to delete document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

func (h *DocumentHandler) ShareDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req model.ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		http.Error(w, "Invalid share request: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.Share(user, req); err != nil {
		switch {
		case errors.Is(err, service.ErrSelfShare):
			http.Error(w, "Cannot share document with yourself", http.StatusBadRequest)
		case errors.Is(err, service.ErrNotFound):
			http.Error(w, "Document not found", http.StatusNotFound)
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, "User not found", http.StatusNotFound)
		case errors.Is(err, service.ErrInvalidPermission):
			http.Error(w, "Invalid permission", http.StatusBadRequest)
		default:
			logger.Sugar.Errorf("Handler: Failed to share document %s: %v", req.DocumentID, err)
			http.Error(w, "Failed to share document", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}
