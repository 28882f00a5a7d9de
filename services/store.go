package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"epicourierAPI/internal/criteria"
	"epicourierAPI/internal/types/achievement"
	"epicourierAPI/internal/types/activity"
	"epicourierAPI/internal/types/challenge"
	"epicourierAPI/internal/types/notification"
	"epicourierAPI/internal/types/user"
)

// IdentityStore resolves the caller's Clerk subject to the ids that own rows.
type IdentityStore interface {
	ResolveIdentity(ctx context.Context, clerkID string) (*user.Identity, error)
}

// ActivityStore exposes the raw activity reads the stats collector needs.
// Dates are YYYY-MM-DD strings.
type ActivityStore interface {
	CountLoggedMeals(ctx context.Context, publicUserID int64) (int, error)
	ListLoggedMealDates(ctx context.Context, publicUserID int64) ([]string, error)
	ListLoggedMealsWithTags(ctx context.Context, publicUserID int64) ([]activity.LoggedMeal, error)
	ListNutrientDates(ctx context.Context, authUserID uuid.UUID, since string) ([]string, error)
	CountNutrientEntries(ctx context.Context, authUserID uuid.UUID) (int, error)
}

type ChallengeStore interface {
	ListActiveChallenges(ctx context.Context) ([]challenge.Challenge, error)
	GetChallenge(ctx context.Context, id int64) (*challenge.Challenge, error)
	ListUserChallenges(ctx context.Context, authUserID uuid.UUID) ([]challenge.UserChallenge, error)
	GetUserChallenge(ctx context.Context, authUserID uuid.UUID, challengeID int64) (*challenge.UserChallenge, error)
	InsertUserChallenge(ctx context.Context, uc challenge.UserChallenge) (*challenge.UserChallenge, error)
	// UpdateUserChallengeProgress writes progress and, when completedAt is
	// non-nil, stamps completion. Rows that are already completed are left alone.
	UpdateUserChallengeProgress(ctx context.Context, id int64, progress criteria.Progress, completedAt *time.Time) error
}

type AchievementStore interface {
	ListAchievementDefinitions(ctx context.Context) ([]achievement.Definition, error)
	ListAchievementsByIDs(ctx context.Context, ids []int64) ([]achievement.Definition, error)
	ListUserAchievements(ctx context.Context, authUserID uuid.UUID) ([]achievement.UserAchievement, error)
	// InsertAchievements inserts all awards or none.
	InsertAchievements(ctx context.Context, awards []achievement.Award) error
}

type DeviceStore interface {
	ListDeviceTokens(ctx context.Context, authUserID uuid.UUID) ([]notification.DeviceToken, error)
	DeleteDeviceTokens(ctx context.Context, tokens []string) error
}

// Store is everything the engine reads and writes.
type Store interface {
	IdentityStore
	ActivityStore
	ChallengeStore
	AchievementStore
	DeviceStore
}
