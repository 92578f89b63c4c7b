package session

import (
	"context"

	"github.com/MrSnakeDoc/keeper/internal/changefeed"
	"github.com/MrSnakeDoc/keeper/internal/domain"
)

// Feed opens change subscriptions for a user.
type Feed interface {
	Subscribe(ctx context.Context, userID string, onEvent func(domain.Change)) (Subscription, error)
}

// Subscription is a live feed subscription.
type Subscription interface {
	Unsubscribe() error
}

type redisFeed struct {
	sub *changefeed.Subscriber
}

// RedisFeed exposes a changefeed subscriber as a Feed.
func RedisFeed(sub *changefeed.Subscriber) Feed {
	return redisFeed{sub: sub}
}

func (f redisFeed) Subscribe(ctx context.Context, userID string, onEvent func(domain.Change)) (Subscription, error) {
	s, err := f.sub.Subscribe(ctx, userID, onEvent)
	if err != nil {
		return nil, err
	}
	return s, nil
}
