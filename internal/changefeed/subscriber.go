package changefeed

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/keeper/internal/domain"
	"github.com/MrSnakeDoc/keeper/internal/logger"
)

// Handler receives validated changes for the subscribed user.
type Handler func(domain.Change)

// Subscriber opens per-user change subscriptions.
type Subscriber struct {
	client *redis.Client
	logger logger.Logger
}

func NewSubscriber(client *redis.Client, log logger.Logger) *Subscriber {
	return &Subscriber{client: client, logger: log}
}

// Subscribe listens on userID's channel and calls onEvent for every valid
// change, from a single goroutine. It returns once Redis confirmed the
// subscription, so no change published afterwards is missed.
func (s *Subscriber) Subscribe(ctx context.Context, userID string, onEvent Handler) (*Subscription, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}

	ps := s.client.Subscribe(ctx, Channel(userID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", Channel(userID), err)
	}

	sub := newSubscription(userID, onEvent, s.logger)
	sub.closer = ps.Close
	go sub.run(ps.Channel())

	s.logger.Debug("change feed subscribed", logger.UserID(userID))
	return sub, nil
}

// Subscription is one live channel subscription.
type Subscription struct {
	userID  string
	onEvent Handler
	logger  logger.Logger

	closer func() error
	once   sync.Once
	err    error
	done   chan struct{}
}

func newSubscription(userID string, onEvent Handler, log logger.Logger) *Subscription {
	return &Subscription{
		userID:  userID,
		onEvent: onEvent,
		logger:  log.With(logger.UserID(userID)),
		done:    make(chan struct{}),
	}
}

func (s *Subscription) run(ch <-chan *redis.Message) {
	defer close(s.done)
	for msg := range ch {
		s.dispatch([]byte(msg.Payload))
	}
}

// dispatch validates one payload and hands it to the handler.
func (s *Subscription) dispatch(payload []byte) {
	change, err := Decode(payload)
	if err != nil {
		s.logger.Warn("dropping invalid change payload", logger.Error(err))
		return
	}
	if owner := change.OwnerID(); owner != "" && owner != s.userID {
		s.logger.Warn("dropping change for another user",
			logger.String("bookmark_id", change.BookmarkID()))
		return
	}
	s.onEvent(change)
}

// Unsubscribe closes the subscription and waits for the delivery goroutine
// to return. Calling it again is a no-op.
func (s *Subscription) Unsubscribe() error {
	s.once.Do(func() {
		if s.closer != nil {
			s.err = s.closer()
		}
		s.logger.Debug("change feed unsubscribed")
	})
	<-s.done
	return s.err
}

// Done is closed once no more changes will be delivered.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
