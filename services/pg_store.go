package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"epicourierAPI/internal/criteria"
	"epicourierAPI/internal/types/achievement"
	"epicourierAPI/internal/types/activity"
	"epicourierAPI/internal/types/challenge"
	"epicourierAPI/internal/types/notification"
	"epicourierAPI/internal/types/user"
)

const uniqueViolation = "23505"

// PgStore implements Store on top of a pgx connection pool.
type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) ResolveIdentity(ctx context.Context, clerkID string) (*user.Identity, error) {
	identity := &user.Identity{ClerkID: clerkID}
	err := s.db.QueryRow(ctx, `SELECT id, auth_user_id FROM "User" WHERE clerk_id = $1`, clerkID).
		Scan(&identity.PublicUserID, &identity.AuthUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return identity, nil
}

// ============= ACTIVITY =============

func (s *PgStore) CountLoggedMeals(ctx context.Context, publicUserID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM "Calendar" WHERE user_id = $1 AND status = true`
	if err := s.db.QueryRow(ctx, query, publicUserID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count meals: %w", err)
	}
	return count, nil
}

// ListLoggedMealDates returns one date per logged meal; meals without a date are skipped.
func (s *PgStore) ListLoggedMealDates(ctx context.Context, publicUserID int64) ([]string, error) {
	query := `
	SELECT to_char(date, 'YYYY-MM-DD')
	FROM "Calendar"
	WHERE user_id = $1 AND status = true AND date IS NOT NULL
	`
	rows, err := s.db.Query(ctx, query, publicUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch meal dates: %w", err)
	}

	dates, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan meal dates: %w", err)
	}
	return dates, nil
}

// ListLoggedMealsWithTags serializes each meal with its recipe and tags in
// the same nested shape the client-side relation decoder understands.
func (s *PgStore) ListLoggedMealsWithTags(ctx context.Context, publicUserID int64) ([]activity.LoggedMeal, error) {
	query := `
	SELECT json_build_object(
		'date', to_char(c.date, 'YYYY-MM-DD'),
		'Recipe', (
			SELECT json_build_object(
				'Recipe-Tag_Map', COALESCE(json_agg(json_build_object('RecipeTag', rt)), '[]'::json)
			)
			FROM "Recipe-Tag_Map" m
			LEFT JOIN LATERAL (
				SELECT t.name FROM "RecipeTag" t WHERE t.id = m.tag_id
			) rt ON true
			WHERE m.recipe_id = c.recipe_id
		)
	)
	FROM "Calendar" c
	WHERE c.user_id = $1 AND c.status = true
	`
	rows, err := s.db.Query(ctx, query, publicUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch meals with tags: %w", err)
	}
	defer rows.Close()

	var meals []activity.LoggedMeal
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}

		var meal activity.LoggedMeal
		if err := json.Unmarshal(raw, &meal); err != nil {
			return nil, fmt.Errorf("failed to decode meal: %w", err)
		}
		meals = append(meals, meal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meals: %w", err)
	}

	return meals, nil
}

// ListNutrientDates returns one date per nutrient-tracking row on or after since.
// An empty since returns every row.
func (s *PgStore) ListNutrientDates(ctx context.Context, authUserID uuid.UUID, since string) ([]string, error) {
	query := `
	SELECT to_char(date, 'YYYY-MM-DD')
	FROM nutrient_tracking
	WHERE user_id = $1 AND ($2 = '' OR date >= $2::date)
	`
	rows, err := s.db.Query(ctx, query, authUserID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nutrient dates: %w", err)
	}

	dates, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan nutrient dates: %w", err)
	}
	return dates, nil
}

func (s *PgStore) CountNutrientEntries(ctx context.Context, authUserID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM nutrient_tracking WHERE user_id = $1`
	if err := s.db.QueryRow(ctx, query, authUserID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count nutrient entries: %w", err)
	}
	return count, nil
}

// ============= CHALLENGES =============

const challengeColumns = `id, name, title, description, type, criteria, reward_achievement_id, start_date, end_date, is_active, created_at`

func scanChallenge(row pgx.Row) (*challenge.Challenge, error) {
	c := &challenge.Challenge{}
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Title,
		&c.Description,
		&c.Type,
		&c.Criteria,
		&c.RewardAchievementID,
		&c.StartDate,
		&c.EndDate,
		&c.IsActive,
		&c.CreatedAt,
	)
	return c, err
}

func (s *PgStore) ListActiveChallenges(ctx context.Context) ([]challenge.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE is_active = true ORDER BY type ASC, name ASC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch challenges: %w", err)
	}
	defer rows.Close()

	var challenges []challenge.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate challenges: %w", err)
	}

	return challenges, nil
}

func (s *PgStore) GetChallenge(ctx context.Context, id int64) (*challenge.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = $1`

	c, err := scanChallenge(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return c, nil
}

const userChallengeColumns = `id, user_id, challenge_id, joined_at, progress, completed_at`

func scanUserChallenge(row pgx.Row) (*challenge.UserChallenge, error) {
	uc := &challenge.UserChallenge{}
	err := row.Scan(
		&uc.ID,
		&uc.UserID,
		&uc.ChallengeID,
		&uc.JoinedAt,
		&uc.Progress,
		&uc.CompletedAt,
	)
	return uc, err
}

func (s *PgStore) ListUserChallenges(ctx context.Context, authUserID uuid.UUID) ([]challenge.UserChallenge, error) {
	query := `SELECT ` + userChallengeColumns + ` FROM user_challenges WHERE user_id = $1`

	rows, err := s.db.Query(ctx, query, authUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user challenges: %w", err)
	}
	defer rows.Close()

	var userChallenges []challenge.UserChallenge
	for rows.Next() {
		uc, err := scanUserChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user challenge: %w", err)
		}
		userChallenges = append(userChallenges, *uc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user challenges: %w", err)
	}

	return userChallenges, nil
}

// GetUserChallenge returns nil without error when the user has not joined.
func (s *PgStore) GetUserChallenge(ctx context.Context, authUserID uuid.UUID, challengeID int64) (*challenge.UserChallenge, error) {
	query := `SELECT ` + userChallengeColumns + ` FROM user_challenges WHERE user_id = $1 AND challenge_id = $2`

	uc, err := scanUserChallenge(s.db.QueryRow(ctx, query, authUserID, challengeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user challenge: %w", err)
	}
	return uc, nil
}

func (s *PgStore) InsertUserChallenge(ctx context.Context, uc challenge.UserChallenge) (*challenge.UserChallenge, error) {
	query := `
	INSERT INTO user_challenges (user_id, challenge_id, joined_at, progress)
	VALUES ($1, $2, $3, $4)
	RETURNING ` + userChallengeColumns

	created, err := scanUserChallenge(s.db.QueryRow(ctx, query, uc.UserID, uc.ChallengeID, uc.JoinedAt, uc.Progress))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyJoined
		}
		return nil, fmt.Errorf("failed to join challenge: %w", err)
	}
	return created, nil
}

func (s *PgStore) UpdateUserChallengeProgress(ctx context.Context, id int64, progress criteria.Progress, completedAt *time.Time) error {
	query := `
	UPDATE user_challenges
	SET progress = $2, completed_at = $3
	WHERE id = $1 AND completed_at IS NULL
	`
	if _, err := s.db.Exec(ctx, query, id, progress, completedAt); err != nil {
		return fmt.Errorf("failed to update user challenge %d: %w", id, err)
	}
	return nil
}

// ============= ACHIEVEMENTS =============

const definitionColumns = `id, name, title, description, icon, tier, criteria`

func scanDefinition(row pgx.Row) (*achievement.Definition, error) {
	d := &achievement.Definition{}
	err := row.Scan(&d.ID, &d.Name, &d.Title, &d.Description, &d.Icon, &d.Tier, &d.Criteria)
	return d, err
}

func (s *PgStore) queryDefinitions(ctx context.Context, query string, args ...any) ([]achievement.Definition, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch achievement definitions: %w", err)
	}
	defer rows.Close()

	var definitions []achievement.Definition
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement definition: %w", err)
		}
		definitions = append(definitions, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate achievement definitions: %w", err)
	}

	return definitions, nil
}

func (s *PgStore) ListAchievementDefinitions(ctx context.Context) ([]achievement.Definition, error) {
	return s.queryDefinitions(ctx, `SELECT `+definitionColumns+` FROM achievement_definitions ORDER BY tier ASC, name ASC`)
}

func (s *PgStore) ListAchievementsByIDs(ctx context.Context, ids []int64) ([]achievement.Definition, error) {
	return s.queryDefinitions(ctx, `SELECT `+definitionColumns+` FROM achievement_definitions WHERE id = ANY($1)`, ids)
}

func (s *PgStore) ListUserAchievements(ctx context.Context, authUserID uuid.UUID) ([]achievement.UserAchievement, error) {
	query := `
	SELECT
		ua.id,
		ua.user_id,
		ua.achievement_id,
		ua.earned_at,
		ua.progress,
		ad.id,
		ad.name,
		ad.title,
		ad.description,
		ad.icon,
		ad.tier,
		ad.criteria
	FROM user_achievements ua
	LEFT JOIN achievement_definitions ad ON ad.id = ua.achievement_id
	WHERE ua.user_id = $1
	ORDER BY ua.earned_at ASC
	`
	rows, err := s.db.Query(ctx, query, authUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user achievements: %w", err)
	}
	defer rows.Close()

	var earned []achievement.UserAchievement
	for rows.Next() {
		var (
			ua          achievement.UserAchievement
			defID       *int64
			name, title *string
			def         achievement.Definition
			rawCriteria []byte
		)
		err := rows.Scan(
			&ua.ID,
			&ua.UserID,
			&ua.AchievementID,
			&ua.EarnedAt,
			&ua.Progress,
			&defID,
			&name,
			&title,
			&def.Description,
			&def.Icon,
			&def.Tier,
			&rawCriteria,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user achievement: %w", err)
		}

		if defID != nil {
			def.ID = *defID
			if name != nil {
				def.Name = *name
			}
			if title != nil {
				def.Title = *title
			}
			if len(rawCriteria) > 0 {
				if err := json.Unmarshal(rawCriteria, &def.Criteria); err != nil {
					return nil, fmt.Errorf("failed to decode achievement criteria: %w", err)
				}
			}
			ua.Achievement = &def
		}

		earned = append(earned, ua)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user achievements: %w", err)
	}

	return earned, nil
}

func (s *PgStore) InsertAchievements(ctx context.Context, awards []achievement.Award) error {
	if len(awards) == 0 {
		return nil
	}

	query := `
	INSERT INTO user_achievements (user_id, achievement_id, earned_at, progress)
	VALUES ($1, $2, $3, $4)
	`
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for _, a := range awards {
			if _, err := tx.Exec(ctx, query, a.UserID, a.AchievementID, a.EarnedAt, a.Progress); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAchievementConflict
		}
		return fmt.Errorf("failed to insert achievements: %w", err)
	}
	return nil
}

// ============= DEVICES =============

func (s *PgStore) ListDeviceTokens(ctx context.Context, authUserID uuid.UUID) ([]notification.DeviceToken, error) {
	query := `SELECT id, token, platform FROM push_subscriptions WHERE user_id = $1`

	rows, err := s.db.Query(ctx, query, authUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch device tokens: %w", err)
	}

	tokens, err := pgx.CollectRows(rows, pgx.RowToStructByPos[notification.DeviceToken])
	if err != nil {
		return nil, fmt.Errorf("failed to scan device tokens: %w", err)
	}
	return tokens, nil
}

func (s *PgStore) DeleteDeviceTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM push_subscriptions WHERE token = ANY($1)`, tokens); err != nil {
		return fmt.Errorf("failed to delete device tokens: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
