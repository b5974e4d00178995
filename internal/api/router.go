package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/register", apiHandler.RegisterHandler)
		r.Post("/login", apiHandler.LoginHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Payment gateway webhook; authenticated by gateway verification, not JWT
		r.Post("/payment-notification", apiHandler.PaymentNotificationHandler)

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			// Profile routes
			r.Get("/me", apiHandler.MeHandler)
			r.Delete("/me", apiHandler.DeleteMeHandler)

			// Catalog routes
			r.Get("/catalog", apiHandler.CatalogHandler)
			r.Get("/packages", apiHandler.PackagesHandler)
			r.Get("/prompts", apiHandler.PromptsHandler)
			r.Post("/summarize", apiHandler.SummarizeHandler)

			// Chat routes
			r.Post("/chats", apiHandler.AskNewChatHandler)
			r.Get("/chats", apiHandler.ListChatsHandler)
			r.Delete("/chats", apiHandler.DeleteAllChatsHandler)
			r.Get("/chats/{sessionID}", apiHandler.GetChatHandler)
			r.Post("/chats/{sessionID}/ask", apiHandler.AskChatHandler)
			r.Delete("/chats/{sessionID}", apiHandler.DeleteChatHandler)

			// Payment checkout
			r.Post("/payments", apiHandler.CreatePaymentHandler)
		})
	})

	return r
}
