package changefeed

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/keeper/internal/domain"
	"github.com/MrSnakeDoc/keeper/internal/logger"
)

// Publisher pushes bookmark changes to the owner's channel.
type Publisher struct {
	client redis.Cmdable
	logger logger.Logger
	now    func() time.Time
}

func NewPublisher(client redis.Cmdable, log logger.Logger) *Publisher {
	return &Publisher{client: client, logger: log, now: time.Now}
}

// Publish encodes c and sends it with PUBLISH. The returned error is only
// about delivery to Redis; zero subscribers is not an error.
func (p *Publisher) Publish(ctx context.Context, c domain.Change) error {
	if c == nil || c.OwnerID() == "" {
		return fmt.Errorf("%w: change without owner", domain.ErrInvalidChange)
	}

	payload, err := Encode(c, p.now())
	if err != nil {
		return err
	}

	receivers, err := p.client.Publish(ctx, Channel(c.OwnerID()), payload).Result()
	if err != nil {
		return fmt.Errorf("publish %s: %w", domain.ChangeKind(c), err)
	}

	p.logger.Debug("change published",
		logger.UserID(c.OwnerID()),
		logger.String("bookmark_id", c.BookmarkID()),
		logger.String("kind", domain.ChangeKind(c)),
		logger.Int64("receivers", receivers))
	return nil
}
