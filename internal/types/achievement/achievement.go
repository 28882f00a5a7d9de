package achievement

import (
	"time"

	"github.com/google/uuid"

	"epicourierAPI/internal/criteria"
)

type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

type Definition struct {
	ID          int64             `json:"id" db:"id"`
	Name        string            `json:"name" db:"name"`
	Title       string            `json:"title" db:"title"`
	Description *string           `json:"description" db:"description"`
	Icon        *string           `json:"icon" db:"icon"`
	Tier        *Tier             `json:"tier" db:"tier"`
	Criteria    criteria.Criteria `json:"criteria" db:"criteria"`
}

// UserAchievement is an earned record. Progress holds the provenance payload
// written at award time.
type UserAchievement struct {
	ID            int64          `json:"id" db:"id"`
	UserID        uuid.UUID      `json:"user_id" db:"user_id"`
	AchievementID int64          `json:"achievement_id" db:"achievement_id"`
	EarnedAt      time.Time      `json:"earned_at" db:"earned_at"`
	Progress      map[string]any `json:"progress" db:"progress"`
	Achievement   *Definition    `json:"achievement,omitempty"`
}

// Provenance records why an achievement was awarded.
type Provenance struct {
	FinalValue int    `json:"final_value"`
	Trigger    string `json:"trigger"`
	Source     string `json:"source,omitempty"`
}

// Award is an earned record waiting to be inserted.
type Award struct {
	UserID        uuid.UUID
	AchievementID int64
	EarnedAt      time.Time
	Progress      Provenance
}

type Progress struct {
	criteria.Progress
	Percentage  int       `json:"percentage"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewProgress decorates a progress pair with a completion percentage capped at 100.
func NewProgress(p criteria.Progress, now time.Time) Progress {
	percentage := 0
	if p.Target > 0 {
		percentage = min(int(float64(p.Current)/float64(p.Target)*100+0.5), 100)
	}
	return Progress{Progress: p, Percentage: percentage, LastUpdated: now}
}

type AchievementsResponse struct {
	Earned    []UserAchievement   `json:"earned"`
	Available []Definition        `json:"available"`
	Progress  map[string]Progress `json:"progress"`
}

type CheckRequest struct {
	Trigger string `json:"trigger"`
}

type CheckResponse struct {
	NewlyEarned []Definition `json:"newly_earned"`
	Message     string       `json:"message"`
}
