// Package memstore is an in-memory services.Store used by tests.
// Any operation can be made to fail through FailOn, keyed by method name.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"epicourierAPI/internal/criteria"
	"epicourierAPI/internal/types/achievement"
	"epicourierAPI/internal/types/activity"
	"epicourierAPI/internal/types/challenge"
	"epicourierAPI/internal/types/notification"
	"epicourierAPI/internal/types/user"
	"epicourierAPI/services"
	"epicourierAPI/utils"
)

var _ services.Store = (*Store)(nil)

type Meal struct {
	Date string
	Tags []string
}

type Store struct {
	mu sync.Mutex

	Users         map[string]user.Identity
	Meals         map[int64][]Meal
	NutrientDates map[uuid.UUID][]string

	Challenges     []challenge.Challenge
	UserChallenges []challenge.UserChallenge

	Definitions      []achievement.Definition
	UserAchievements []achievement.UserAchievement

	Devices map[uuid.UUID][]notification.DeviceToken

	// FailOn makes the named method return the error.
	FailOn map[string]error
	// FailAfter lets the named method succeed that many times before failing with FailOn's error.
	FailAfter map[string]int
	// Calls counts invocations per method name.
	Calls map[string]int

	nextID int64
}

func New() *Store {
	return &Store{
		Users:         make(map[string]user.Identity),
		Meals:         make(map[int64][]Meal),
		NutrientDates: make(map[uuid.UUID][]string),
		Devices:       make(map[uuid.UUID][]notification.DeviceToken),
		FailOn:        make(map[string]error),
		FailAfter:     make(map[string]int),
		Calls:         make(map[string]int),
	}
}

// AddUser registers a caller and returns its identity.
func (s *Store) AddUser(clerkID string, publicUserID int64) user.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity := user.Identity{ClerkID: clerkID, PublicUserID: publicUserID, AuthUserID: uuid.New()}
	s.Users[clerkID] = identity
	return identity
}

func (s *Store) AddMeal(publicUserID int64, date string, tags ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Meals[publicUserID] = append(s.Meals[publicUserID], Meal{Date: date, Tags: tags})
}

func (s *Store) AddNutrientDate(authUserID uuid.UUID, date string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NutrientDates[authUserID] = append(s.NutrientDates[authUserID], date)
}

// UserChallengeFor returns a copy of the participation record, if any.
func (s *Store) UserChallengeFor(authUserID uuid.UUID, challengeID int64) (challenge.UserChallenge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, uc := range s.UserChallenges {
		if uc.UserID == authUserID && uc.ChallengeID == challengeID {
			return uc, true
		}
	}
	return challenge.UserChallenge{}, false
}

func (s *Store) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls[method]
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// enter records the call and reports the injected failure, if any. Callers hold mu.
func (s *Store) enter(method string) error {
	s.Calls[method]++
	err, ok := s.FailOn[method]
	if !ok {
		return nil
	}
	if s.Calls[method] <= s.FailAfter[method] {
		return nil
	}
	return err
}

func (s *Store) ResolveIdentity(_ context.Context, clerkID string) (*user.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ResolveIdentity"); err != nil {
		return nil, err
	}

	identity, ok := s.Users[clerkID]
	if !ok {
		return nil, services.ErrUserNotFound
	}
	return &identity, nil
}

func (s *Store) CountLoggedMeals(_ context.Context, publicUserID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CountLoggedMeals"); err != nil {
		return 0, err
	}
	return len(s.Meals[publicUserID]), nil
}

func (s *Store) ListLoggedMealDates(_ context.Context, publicUserID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListLoggedMealDates"); err != nil {
		return nil, err
	}

	var dates []string
	for _, m := range s.Meals[publicUserID] {
		if m.Date != "" {
			dates = append(dates, m.Date)
		}
	}
	return dates, nil
}

func (s *Store) ListLoggedMealsWithTags(_ context.Context, publicUserID int64) ([]activity.LoggedMeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListLoggedMealsWithTags"); err != nil {
		return nil, err
	}

	var meals []activity.LoggedMeal
	for _, m := range s.Meals[publicUserID] {
		var recipe activity.Recipe
		for _, name := range m.Tags {
			recipe.TagMap = append(recipe.TagMap, activity.RecipeTagMap{Tag: utils.Embed(activity.Tag{Name: &name})})
		}

		meal := activity.LoggedMeal{Recipe: utils.Embed(recipe)}
		if m.Date != "" {
			date := m.Date
			meal.Date = &date
		}
		meals = append(meals, meal)
	}
	return meals, nil
}

func (s *Store) ListNutrientDates(_ context.Context, authUserID uuid.UUID, since string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListNutrientDates"); err != nil {
		return nil, err
	}

	var dates []string
	for _, d := range s.NutrientDates[authUserID] {
		if d >= since {
			dates = append(dates, d)
		}
	}
	return dates, nil
}

func (s *Store) CountNutrientEntries(_ context.Context, authUserID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CountNutrientEntries"); err != nil {
		return 0, err
	}
	return len(s.NutrientDates[authUserID]), nil
}

func (s *Store) ListActiveChallenges(_ context.Context) ([]challenge.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListActiveChallenges"); err != nil {
		return nil, err
	}

	var active []challenge.Challenge
	for _, c := range s.Challenges {
		if c.IsActive {
			active = append(active, c)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Type != active[j].Type {
			return active[i].Type < active[j].Type
		}
		return active[i].Name < active[j].Name
	})
	return active, nil
}

func (s *Store) GetChallenge(_ context.Context, id int64) (*challenge.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetChallenge"); err != nil {
		return nil, err
	}

	for _, c := range s.Challenges {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, services.ErrChallengeNotFound
}

func (s *Store) ListUserChallenges(_ context.Context, authUserID uuid.UUID) ([]challenge.UserChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListUserChallenges"); err != nil {
		return nil, err
	}

	var rows []challenge.UserChallenge
	for _, uc := range s.UserChallenges {
		if uc.UserID == authUserID {
			rows = append(rows, uc)
		}
	}
	return rows, nil
}

func (s *Store) GetUserChallenge(_ context.Context, authUserID uuid.UUID, challengeID int64) (*challenge.UserChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetUserChallenge"); err != nil {
		return nil, err
	}

	for _, uc := range s.UserChallenges {
		if uc.UserID == authUserID && uc.ChallengeID == challengeID {
			return &uc, nil
		}
	}
	return nil, nil
}

func (s *Store) InsertUserChallenge(_ context.Context, uc challenge.UserChallenge) (*challenge.UserChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("InsertUserChallenge"); err != nil {
		return nil, err
	}

	for _, existing := range s.UserChallenges {
		if existing.UserID == uc.UserID && existing.ChallengeID == uc.ChallengeID {
			return nil, services.ErrAlreadyJoined
		}
	}

	uc.ID = s.id()
	s.UserChallenges = append(s.UserChallenges, uc)
	return &uc, nil
}

func (s *Store) UpdateUserChallengeProgress(_ context.Context, id int64, progress criteria.Progress, completedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateUserChallengeProgress"); err != nil {
		return err
	}

	for i := range s.UserChallenges {
		uc := &s.UserChallenges[i]
		if uc.ID != id || uc.IsCompleted() {
			continue
		}
		p := progress
		uc.Progress = &p
		if completedAt != nil {
			at := *completedAt
			uc.CompletedAt = &at
		}
	}
	return nil
}

func (s *Store) ListAchievementDefinitions(_ context.Context) ([]achievement.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListAchievementDefinitions"); err != nil {
		return nil, err
	}
	return append([]achievement.Definition(nil), s.Definitions...), nil
}

func (s *Store) ListAchievementsByIDs(_ context.Context, ids []int64) ([]achievement.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListAchievementsByIDs"); err != nil {
		return nil, err
	}

	wanted := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	var defs []achievement.Definition
	for _, d := range s.Definitions {
		if _, ok := wanted[d.ID]; ok {
			defs = append(defs, d)
		}
	}
	return defs, nil
}

func (s *Store) ListUserAchievements(_ context.Context, authUserID uuid.UUID) ([]achievement.UserAchievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListUserAchievements"); err != nil {
		return nil, err
	}

	var rows []achievement.UserAchievement
	for _, ua := range s.UserAchievements {
		if ua.UserID != authUserID {
			continue
		}
		for _, d := range s.Definitions {
			if d.ID == ua.AchievementID {
				def := d
				ua.Achievement = &def
			}
		}
		rows = append(rows, ua)
	}
	return rows, nil
}

func (s *Store) InsertAchievements(_ context.Context, awards []achievement.Award) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("InsertAchievements"); err != nil {
		return err
	}

	for _, a := range awards {
		for _, ua := range s.UserAchievements {
			if ua.UserID == a.UserID && ua.AchievementID == a.AchievementID {
				return services.ErrAchievementConflict
			}
		}
	}

	for _, a := range awards {
		progress := map[string]any{
			"final_value": a.Progress.FinalValue,
			"trigger":     a.Progress.Trigger,
		}
		if a.Progress.Source != "" {
			progress["source"] = a.Progress.Source
		}
		s.UserAchievements = append(s.UserAchievements, achievement.UserAchievement{
			ID:            s.id(),
			UserID:        a.UserID,
			AchievementID: a.AchievementID,
			EarnedAt:      a.EarnedAt,
			Progress:      progress,
		})
	}
	return nil
}

func (s *Store) ListDeviceTokens(_ context.Context, authUserID uuid.UUID) ([]notification.DeviceToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListDeviceTokens"); err != nil {
		return nil, err
	}
	return append([]notification.DeviceToken(nil), s.Devices[authUserID]...), nil
}

func (s *Store) DeleteDeviceTokens(_ context.Context, tokens []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteDeviceTokens"); err != nil {
		return err
	}

	drop := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		drop[t] = struct{}{}
	}
	for userID, devices := range s.Devices {
		kept := devices[:0]
		for _, d := range devices {
			if _, ok := drop[d.Token]; !ok {
				kept = append(kept, d)
			}
		}
		s.Devices[userID] = kept
	}
	return nil
}
