package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"pintarai.app/server/internal/auth"
	"pintarai.app/server/internal/catalog"
	"pintarai.app/server/internal/core"
	"pintarai.app/server/internal/store"
)

type APIHandler struct {
	userService    *core.UserService
	sessionService *core.SessionService
	paymentService *core.PaymentService
	generator      core.Generator
	jwtSecret      string
}

func NewAPIHandler(us *core.UserService, ss *core.SessionService, ps *core.PaymentService, gen core.Generator, jwtSecret string) *APIHandler {
	return &APIHandler{
		userService:    us,
		sessionService: ss,
		paymentService: ps,
		generator:      gen,
		jwtSecret:      jwtSecret,
	}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		uid, err := auth.ValidateJWT(tokenString, h.jwtSecret)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		user, err := h.userService.GetProfile(r.Context(), uid)
		if err != nil {
			log.Error().Err(err).Str("uid", uid).Msg("Failed to load profile in auth middleware")
			http.Error(w, "Failed to process user identity", http.StatusInternalServerError)
			return
		}
		if user == nil {
			http.Error(w, "User not found", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, user.UID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type ctxKey string

const userIDKey ctxKey = "userID"

func requestUserID(r *http.Request) string {
	uid, _ := r.Context().Value(userIDKey).(string)
	return uid
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	profile, err := h.userService.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, core.ErrEmailTaken) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		log.Error().Err(err).Str("email", req.Email).Msg("Failed to register user")
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(profile)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		log.Error().Err(err).Str("email", req.Email).Msg("Login failed")
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(user.UID, h.jwtSecret)
	if err != nil {
		log.Error().Err(err).Str("uid", user.UID).Msg("Failed to generate JWT")
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	profile, err := h.userService.GetProfile(r.Context(), requestUserID(r))
	if err != nil || profile == nil {
		http.Error(w, "Failed to load profile", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(profile)
}

func (h *APIHandler) DeleteMeHandler(w http.ResponseWriter, r *http.Request) {
	uid := requestUserID(r)
	if err := h.userService.DeleteAccount(r.Context(), uid); err != nil {
		log.Error().Err(err).Str("uid", uid).Msg("Account deletion failed")
		http.Error(w, "Account deletion failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) CatalogHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"class_levels":     catalog.ClassLevels,
		"subjects_by_tier": catalog.SubjectsByTier,
	})
}

func (h *APIHandler) PackagesHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(catalog.TokenPackages)
}

// PromptsHandler serves two example prompts for the selected context. The
// generated set is preferred; on exhausted retries the curated catalog set is
// served instead, flagged by source.
func (h *APIHandler) PromptsHandler(w http.ResponseWriter, r *http.Request) {
	classLevel := r.URL.Query().Get("class_level")
	subject := r.URL.Query().Get("subject")
	if !catalog.ValidClassLevel(classLevel) || !catalog.ValidSubject(classLevel, subject) {
		http.Error(w, "Valid class_level and subject query parameters are required", http.StatusBadRequest)
		return
	}

	source := "generated"
	prompts, err := h.generator.GeneratePrompts(r.Context(), classLevel, subject)
	if err != nil {
		log.Warn().Err(err).Str("class_level", classLevel).Str("subject", subject).Msg("Prompt generation exhausted, serving fallback")
		prompts = catalog.FallbackPrompts(classLevel, subject)
		source = "fallback"
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"prompts": prompts,
		"source":  source,
	})
}

type SummarizeRequest struct {
	Question string `json:"question"`
}

func (h *APIHandler) SummarizeHandler(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		http.Error(w, "Question cannot be empty", http.StatusBadRequest)
		return
	}

	summary, err := h.generator.SummarizeQuestion(r.Context(), req.Question)
	if err != nil {
		log.Error().Err(err).Msg("Failed to summarize question")
		http.Error(w, "Failed to summarize question", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"summary": summary})
}

type AskRequest struct {
	QuestionText    string `json:"question_text"`
	ClassLevel      string `json:"class_level,omitempty"`
	Subject         string `json:"subject,omitempty"`
	UploadedFileURI string `json:"uploaded_file_uri,omitempty"`
	FileName        string `json:"file_name,omitempty"`
}

// AskNewChatHandler starts a session from the submitted context and asks the
// first question.
func (h *APIHandler) AskNewChatHandler(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, "")
}

// AskChatHandler asks a follow-up question in an existing session.
func (h *APIHandler) AskChatHandler(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, chi.URLParam(r, "sessionID"))
}

func (h *APIHandler) ask(w http.ResponseWriter, r *http.Request, sessionID string) {
	userID := requestUserID(r)

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	session, err := h.sessionService.Ask(r.Context(), userID, sessionID,
		req.ClassLevel, req.Subject, req.QuestionText, req.UploadedFileURI, req.FileName)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrEmptyQuestion), errors.Is(err, core.ErrMissingContext):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, store.ErrInsufficientBalance):
			http.Error(w, "Token habis. Silakan beli paket token untuk terus bertanya.", http.StatusPaymentRequired)
		case errors.Is(err, core.ErrSessionNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			log.Error().Err(err).Str("user_id", userID).Msg("Ask failed")
			http.Error(w, "Failed to process question", http.StatusInternalServerError)
		}
		return
	}

	if sessionID == "" {
		w.WriteHeader(http.StatusCreated)
	}
	json.NewEncoder(w).Encode(session)
}

func (h *APIHandler) ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	sessions, err := h.sessionService.ListByUser(r.Context(), userID)
	if err != nil {
		// Deliberately not an empty list: "history unavailable" is a different
		// statement than "no history".
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list chats")
		http.Error(w, "History unavailable", http.StatusBadGateway)
		return
	}
	if sessions == nil {
		sessions = []store.ChatSession{}
	}
	json.NewEncoder(w).Encode(sessions)
}

func (h *APIHandler) GetChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.sessionService.LoadByID(r.Context(), sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to load chat")
		http.Error(w, "Failed to get chat", http.StatusInternalServerError)
		return
	}
	if session == nil || session.UserID != userID {
		http.Error(w, "Chat not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(session)
}

func (h *APIHandler) DeleteChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.sessionService.DeleteSession(r.Context(), sessionID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Chat not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to delete chat")
		http.Error(w, "Failed to delete chat", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) DeleteAllChatsHandler(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	if err := h.sessionService.DeleteAll(r.Context(), userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to clear history")
		http.Error(w, "Failed to clear history", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
