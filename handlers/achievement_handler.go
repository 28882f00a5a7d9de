package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"epicourierAPI/internal/types/achievement"
	"epicourierAPI/middleware"
	"epicourierAPI/services"
)

type AchievementHandler struct {
	achievementService *services.AchievementService
}

func NewAchievementHandler(achievementService *services.AchievementService) *AchievementHandler {
	return &AchievementHandler{
		achievementService: achievementService,
	}
}

// GetAchievements also awards any achievement whose criteria are now met.
func (h *AchievementHandler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	achievements, err := h.achievementService.GetAchievements(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, "GET /api/v1/achievements", err)
		return
	}

	respondWithJSON(w, http.StatusOK, achievements)
}

func (h *AchievementHandler) CheckAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req achievement.CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if req.Trigger == "" {
		respondWithError(w, http.StatusBadRequest, "Missing trigger field")
		return
	}

	resp, err := h.achievementService.CheckAchievements(ctx, clerkID, req.Trigger)
	if err != nil {
		respondWithServiceError(w, "POST /api/v1/achievements/check", err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}
