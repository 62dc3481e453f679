// Package usecase contains application business logic.
package usecase

import (
	"context"
	"time"

	"github.com/eliteGoblin/netmon/internal/domain"
)

// Candidates returns the locators to try for one control: the explicit
// locator alone when set, otherwise the fallbacks in order.
func Candidates(explicit string, fallbacks []string) []string {
	if explicit != "" {
		return []string{explicit}
	}
	return fallbacks
}

// FirstMatch resolves candidates in order and returns the first element found
// together with the locator that matched. Empty locators are skipped. When
// nothing matches, the error from the last attempt is returned; when no
// candidate was usable at all, the error is domain.ErrNoLocator.
func FirstMatch(ctx context.Context, b domain.Browser, candidates []string) (domain.Element, string, error) {
	var lastErr error
	for _, xp := range candidates {
		if xp == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		el, err := b.Find(ctx, xp)
		if err == nil {
			return el, xp, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return nil, "", lastErr
	}
	return nil, "", domain.ErrNoLocator
}

// pause sleeps for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
