package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/messagely/server/internal/messages"
	"github.com/messagely/server/internal/middleware"
	"github.com/messagely/server/internal/model"
)

// MessageHandler handles message endpoints
type MessageHandler struct {
	msgService *messages.MessageService
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(msgService *messages.MessageService) *MessageHandler {
	return &MessageHandler{msgService: msgService}
}

// sendMessageRequest is the request body for POST /messages
type sendMessageRequest struct {
	ToUsername string `json:"to_username"`
	Body       string `json:"body"`
}

// sentMessageResponse is the message object returned by POST /messages
type sentMessageResponse struct {
	ID           int64     `json:"id"`
	FromUsername string    `json:"from_username"`
	ToUsername   string    `json:"to_username"`
	Body         string    `json:"body"`
	SentAt       time.Time `json:"sent_at"`
}

// readReceiptResponse is the message object returned by POST /messages/{id}/read
type readReceiptResponse struct {
	ID     int64      `json:"id"`
	ReadAt *time.Time `json:"read_at"`
}

// HandleGet handles GET /messages/{id}. Only the sender and the recipient
// may view a message.
func (h *MessageHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetUsername(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := messageID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	view, err := h.msgService.Get(r.Context(), caller, id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]model.MessageView{"message": view})
}

// HandleSend handles POST /messages. The sender is always the caller.
func (h *MessageHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetUsername(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.msgService.Send(r.Context(), caller, req.ToUsername, req.Body)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]sentMessageResponse{
		"message": {
			ID:           msg.ID,
			FromUsername: msg.FromUsername,
			ToUsername:   msg.ToUsername,
			Body:         msg.Body,
			SentAt:       msg.SentAt,
		},
	})
}

// HandleMarkRead handles POST /messages/{id}/read. Only the recipient may
// mark; marking twice is a no-op success.
func (h *MessageHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetUsername(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := messageID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	view, err := h.msgService.MarkRead(r.Context(), caller, id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]readReceiptResponse{
		"message": {ID: view.ID, ReadAt: view.ReadAt},
	})
}

// messageID parses the {id} URL parameter.
func messageID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
