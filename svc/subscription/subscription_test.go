package subscription_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/storekit/storekit/svc/subscription"
)

func TestSubscription_ExpireIfDue(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("expires active past period end", func(t *testing.T) {
		t.Parallel()
		sub := subscription.Subscription{Status: subscription.StatusActive, EndsAt: base}

		assert.True(t, sub.ExpireIfDue(base.Add(time.Minute)))
		assert.Equal(t, subscription.StatusExpired, sub.Status)
	})

	t.Run("expires trial past trial end", func(t *testing.T) {
		t.Parallel()
		sub := subscription.Subscription{Status: subscription.StatusTrialing, EndsAt: base}

		assert.True(t, sub.ExpireIfDue(base.Add(time.Hour)))
		assert.Equal(t, subscription.StatusExpired, sub.Status)
	})

	t.Run("no-op before period end", func(t *testing.T) {
		t.Parallel()
		sub := subscription.Subscription{Status: subscription.StatusActive, EndsAt: base}

		assert.False(t, sub.ExpireIfDue(base))
		assert.Equal(t, subscription.StatusActive, sub.Status)
	})

	t.Run("idempotent on already-expired subscription", func(t *testing.T) {
		t.Parallel()
		sub := subscription.Subscription{Status: subscription.StatusActive, EndsAt: base}
		now := base.Add(24 * time.Hour)

		assert.True(t, sub.ExpireIfDue(now))
		updatedAt := sub.UpdatedAt

		assert.False(t, sub.ExpireIfDue(now.Add(24*time.Hour)))
		assert.Equal(t, subscription.StatusExpired, sub.Status)
		assert.Equal(t, updatedAt, sub.UpdatedAt)
	})

	t.Run("leaves cancelled subscriptions alone", func(t *testing.T) {
		t.Parallel()
		sub := subscription.Subscription{Status: subscription.StatusCancelled, EndsAt: base}

		assert.False(t, sub.ExpireIfDue(base.Add(time.Hour)))
		assert.Equal(t, subscription.StatusCancelled, sub.Status)
	})
}

func TestSubscription_DaysRemainingAt(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	sub := subscription.Subscription{EndsAt: base.AddDate(0, 0, 3)}

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"three full days out", base, 3},
		{"partial day rounds up", base.AddDate(0, 0, 2).Add(12 * time.Hour), 1},
		{"at the boundary", sub.EndsAt, 0},
		{"past the end clamps to zero", sub.EndsAt.Add(48 * time.Hour), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sub.DaysRemainingAt(tt.now))
		})
	}
}

func TestSubscription_DaysSinceExpiryAt(t *testing.T) {
	t.Parallel()

	end := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	sub := subscription.Subscription{EndsAt: end}

	assert.Equal(t, 0, sub.DaysSinceExpiryAt(end))
	assert.Equal(t, 0, sub.DaysSinceExpiryAt(end.Add(12*time.Hour)))
	assert.Equal(t, 1, sub.DaysSinceExpiryAt(end.Add(36*time.Hour)))
	assert.Equal(t, 7, sub.DaysSinceExpiryAt(end.AddDate(0, 0, 7)))
}

func TestTransitionError(t *testing.T) {
	t.Parallel()

	err := &subscription.TransitionError{From: subscription.StatusExpired, Event: subscription.EventCancel}

	assert.ErrorIs(t, err, subscription.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "cancel")
	assert.Contains(t, err.Error(), "expired")
}
