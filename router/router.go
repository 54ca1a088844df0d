package router

import (
	"database/sql"
	"net/http"

	authHandler "inkpad/internal/auth"
	authRepository "inkpad/internal/auth/repository"
	authService "inkpad/internal/auth/service"
	docHandler "inkpad/internal/document"
	docRepository "inkpad/internal/document/repository"
	docService "inkpad/internal/document/service"
	"inkpad/middleware"
	"inkpad/socket"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

func Setup(db *sql.DB, hub *socket.Hub, jwtSecret []byte) http.Handler {
	userRepo := authRepository.NewUserRepository(db)
	authSvc := authService.NewAuthService(userRepo, jwtSecret)
	authH := authHandler.NewAuthHandler(authSvc)

	docRepo := docRepository.NewDocumentRepository(db)
	docSvc := docService.NewDocumentService(docRepo, hub)
	docH := docHandler.NewDocumentHandler(docSvc)

	auth := middleware.Auth(authSvc)
	loginLimiter := middleware.NewIPRateLimiter(1, 5)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(loginLimiter))
		r.Post("/register", authH.Register)
		r.Post("/login", authH.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Get("/api/users", authH.GetUsers)
		r.Route("/api/documents", func(r chi.Router) {
			r.Get("/", docH.GetDocuments)
			r.Post("/", docH.CreateDocument)
			r.Post("/share", docH.ShareDocument)
			r.Get("/{documentId}", docH.GetDocument)
			r.Put("/{documentId}", docH.UpdateDocument)
			r.Delete("/{documentId}", docH.DeleteDocument)
		})
	})

	// The socket attach authenticates in-session so authentication and
	// authorization failures are indistinguishable on the wire.
	r.Get("/ws/{documentId}", func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(hub, authSvc, docRepo, w, r)
	})

	return r
}
