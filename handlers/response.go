package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"epicourierAPI/services"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps service sentinels to status codes. Anything
// unrecognized is a store failure and is surfaced as a 500 with its message.
func respondWithServiceError(w http.ResponseWriter, route string, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		log.Printf("%s auth error: %v", route, err)
		respondWithError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrInvalidChallengeID), errors.Is(err, services.ErrMissingTrigger):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrChallengeNotFound):
		respondWithError(w, http.StatusNotFound, "Challenge not found")
	case errors.Is(err, services.ErrChallengeInactive):
		respondWithError(w, http.StatusNotFound, "Challenge not found or not active")
	case errors.Is(err, services.ErrAlreadyJoined):
		respondWithError(w, http.StatusConflict, "You have already joined this challenge")
	default:
		log.Printf("%s error: %v", route, err)
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
