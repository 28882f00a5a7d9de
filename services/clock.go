package services

import (
	"context"
	"fmt"
	"time"

	"epicourierAPI/internal/types/user"
)

// Clock returns "now" in the location whose calendar defines days, weeks and months.
type Clock func() time.Time

func LocalClock(loc *time.Location) Clock {
	return func() time.Time {
		return time.Now().In(loc)
	}
}

// resolveIdentity maps any lookup failure to ErrUnauthorized so handlers answer 401
// without computing anything.
func resolveIdentity(ctx context.Context, store IdentityStore, clerkID string) (*user.Identity, error) {
	identity, err := store.ResolveIdentity(ctx, clerkID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return identity, nil
}
