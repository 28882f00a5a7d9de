package challenge

import (
	"time"

	"github.com/google/uuid"

	"epicourierAPI/internal/criteria"
	"epicourierAPI/internal/datewindow"
	"epicourierAPI/internal/types/achievement"
)

type Recurrence string

const (
	RecurrenceWeekly  Recurrence = datewindow.RecurrenceWeekly
	RecurrenceMonthly Recurrence = datewindow.RecurrenceMonthly
	RecurrenceSpecial Recurrence = "special"
)

type Challenge struct {
	ID                  int64             `json:"id" db:"id"`
	Name                string            `json:"name" db:"name"`
	Title               string            `json:"title" db:"title"`
	Description         *string           `json:"description" db:"description"`
	Type                Recurrence        `json:"type" db:"type"`
	Criteria            criteria.Criteria `json:"criteria" db:"criteria"`
	RewardAchievementID *int64            `json:"reward_achievement_id" db:"reward_achievement_id"`
	StartDate           *time.Time        `json:"start_date" db:"start_date"`
	EndDate             *time.Time        `json:"end_date" db:"end_date"`
	IsActive            bool              `json:"is_active" db:"is_active"`
	CreatedAt           time.Time         `json:"created_at" db:"created_at"`
}

// DaysRemaining counts down to the explicit end date, or to the end of the
// current week/month for recurring challenges.
func (c Challenge) DaysRemaining(now time.Time) int {
	return datewindow.DaysRemaining(c.EndDate, string(c.Type), now)
}

// UserChallenge is the participation record for one (user, challenge) pair.
// CompletedAt is terminal once set.
type UserChallenge struct {
	ID          int64              `json:"id" db:"id"`
	UserID      uuid.UUID          `json:"user_id" db:"user_id"`
	ChallengeID int64              `json:"challenge_id" db:"challenge_id"`
	JoinedAt    time.Time          `json:"joined_at" db:"joined_at"`
	Progress    *criteria.Progress `json:"progress" db:"progress"`
	CompletedAt *time.Time         `json:"completed_at" db:"completed_at"`
}

func (uc UserChallenge) IsCompleted() bool {
	return uc.CompletedAt != nil
}

type ChallengeWithStatus struct {
	Challenge
	IsJoined          bool                    `json:"is_joined"`
	Progress          criteria.Progress       `json:"progress"`
	RewardAchievement *achievement.Definition `json:"reward_achievement,omitempty"`
	DaysRemaining     int                     `json:"days_remaining"`
}

type ChallengesResponse struct {
	Active    []ChallengeWithStatus `json:"active"`
	Joined    []ChallengeWithStatus `json:"joined"`
	Completed []ChallengeWithStatus `json:"completed"`
}

type JoinRequest struct {
	ChallengeID int64 `json:"challenge_id"`
}

type JoinResponse struct {
	Success       bool           `json:"success"`
	UserChallenge *UserChallenge `json:"user_challenge"`
	Message       string         `json:"message"`
}
