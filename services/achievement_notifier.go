package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"epicourierAPI/internal/types/achievement"
	"epicourierAPI/internal/types/notification"
)

type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, msg notification.Message) (*notification.PushResult, error)
}

// AchievementNotifier pushes "achievement unlocked" messages to every device
// a user registered, and forgets devices the provider no longer knows.
type AchievementNotifier struct {
	store   DeviceStore
	push    PushProvider
	baseURL string
}

// baseURL is the public web origin used to build click-through links; it may be empty.
func NewAchievementNotifier(store DeviceStore, push PushProvider, baseURL string) *AchievementNotifier {
	return &AchievementNotifier{store: store, push: push, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// NotifyEarned sends one message per achievement and returns the total
// number of deliveries that succeeded and failed.
func (n *AchievementNotifier) NotifyEarned(ctx context.Context, userID uuid.UUID, earned []achievement.Definition) (sent, failed int, err error) {
	if len(earned) == 0 {
		return 0, 0, nil
	}

	tokens, err := n.store.ListDeviceTokens(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	if len(tokens) == 0 {
		return 0, 0, nil
	}

	stale := make(map[string]struct{})
	for _, a := range earned {
		result, err := n.push.SendPush(ctx, tokens, AchievementMessage(a, n.baseURL))
		if err != nil {
			log.Printf("Achievement Notifier: push for %s failed: %v", a.Name, err)
		}
		if result == nil {
			failed += len(tokens)
			continue
		}

		sent += result.Sent
		failed += result.Failed
		for _, t := range result.Stale {
			stale[t] = struct{}{}
		}
	}

	if len(stale) > 0 {
		var staleTokens []string
		for t := range stale {
			staleTokens = append(staleTokens, t)
		}
		if err := n.store.DeleteDeviceTokens(ctx, staleTokens); err != nil {
			log.Printf("Achievement Notifier: failed to remove %d stale tokens: %v", len(staleTokens), err)
		} else {
			log.Printf("Achievement Notifier: removed %d stale tokens for user %s", len(staleTokens), userID)
		}
	}

	return sent, failed, nil
}

const achievementsPath = "/dashboard/achievements"

func AchievementMessage(a achievement.Definition, baseURL string) notification.Message {
	description := ""
	if a.Description != nil {
		description = *a.Description
	}

	data := map[string]string{
		"type":            "achievement",
		"achievementId":   strconv.FormatInt(a.ID, 10),
		"achievementName": a.Name,
		"url":             achievementsPath,
	}
	if a.Tier != nil {
		data["tier"] = string(*a.Tier)
	}

	return notification.Message{
		Title: "🏆 Achievement Unlocked!",
		Body:  fmt.Sprintf(`You earned "%s" - %s`, a.Title, description),
		Tag:   fmt.Sprintf("achievement-%d", a.ID),
		Link:  baseURL + achievementsPath,
		Data:  data,
	}
}
