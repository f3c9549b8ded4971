package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/messagely/server/internal/apperr"
)

// respondWithJSON writes a JSON response with the given status code
func respondWithJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{"error": message})
}

// respondWithAppError maps a service error to a stable status code and
// message. Internal detail (driver text, hashes) never reaches the client.
func respondWithAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		respondWithError(w, http.StatusBadRequest, apperr.ErrValidation.Error())
	case errors.Is(err, apperr.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, apperr.ErrInvalidCredentials.Error())
	case errors.Is(err, apperr.ErrUnauthorized):
		respondWithError(w, http.StatusForbidden, apperr.ErrUnauthorized.Error())
	case errors.Is(err, apperr.ErrRecipientNotFound):
		respondWithError(w, http.StatusNotFound, apperr.ErrRecipientNotFound.Error())
	case errors.Is(err, apperr.ErrNotFound):
		respondWithError(w, http.StatusNotFound, apperr.ErrNotFound.Error())
	case errors.Is(err, apperr.ErrDuplicateUsername):
		respondWithError(w, http.StatusConflict, apperr.ErrDuplicateUsername.Error())
	case errors.Is(err, apperr.ErrUnavailable):
		respondWithError(w, http.StatusServiceUnavailable, apperr.ErrUnavailable.Error())
	default:
		log.Printf("Internal error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "internal error")
	}
}
