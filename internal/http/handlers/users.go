package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/messagely/server/internal/messages"
	"github.com/messagely/server/internal/middleware"
	"github.com/messagely/server/internal/model"
	"github.com/messagely/server/internal/repo"
)

// UserHandler handles user listing and per-user message history endpoints
type UserHandler struct {
	userRepo   repo.UserRepo
	msgService *messages.MessageService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userRepo repo.UserRepo, msgService *messages.MessageService) *UserHandler {
	return &UserHandler{
		userRepo:   userRepo,
		msgService: msgService,
	}
}

// userListEntry is one entry of GET /users
type userListEntry struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// userDetailResponse is the user object for GET /users/{username}.
// The password hash is never part of any response shape.
type userDetailResponse struct {
	Username    string     `json:"username"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       string     `json:"phone"`
	JoinedAt    time.Time  `json:"joined_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// HandleList handles GET /users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.userRepo.List(r.Context())
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	entries := make([]userListEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, userListEntry{
			Username:  u.Username,
			FirstName: u.FirstName,
			LastName:  u.LastName,
		})
	}
	respondWithJSON(w, http.StatusOK, map[string][]userListEntry{"users": entries})
}

// HandleGet handles GET /users/{username}. Callers may only fetch their own
// detail record.
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	username, ok := h.requireSelf(w, r)
	if !ok {
		return
	}

	user, err := h.userRepo.GetByUsername(r.Context(), username)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]userDetailResponse{
		"user": {
			Username:    user.Username,
			FirstName:   user.FirstName,
			LastName:    user.LastName,
			Phone:       user.Phone,
			JoinedAt:    user.JoinedAt,
			LastLoginAt: user.LastLoginAt,
		},
	})
}

// HandleListSent handles GET /users/{username}/messages/sent
func (h *UserHandler) HandleListSent(w http.ResponseWriter, r *http.Request) {
	username, ok := h.requireSelf(w, r)
	if !ok {
		return
	}

	msgs, err := h.msgService.ListSent(r.Context(), username)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string][]model.SentMessage{"messages": msgs})
}

// HandleListReceived handles GET /users/{username}/messages/received
func (h *UserHandler) HandleListReceived(w http.ResponseWriter, r *http.Request) {
	username, ok := h.requireSelf(w, r)
	if !ok {
		return
	}

	msgs, err := h.msgService.ListReceived(r.Context(), username)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string][]model.ReceivedMessage{"messages": msgs})
}

// requireSelf checks that the {username} URL parameter matches the caller.
func (h *UserHandler) requireSelf(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller, ok := middleware.GetUsername(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	username := chi.URLParam(r, "username")
	if username != caller {
		respondWithError(w, http.StatusForbidden, "unauthorized")
		return "", false
	}
	return username, true
}
