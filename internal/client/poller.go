package client

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/chat"
)

// DefaultPollInterval is how often a Poller asks for new messages.
const DefaultPollInterval = 2 * time.Second

// historyLimit is the page size of the first fetch.
const historyLimit = 100

// Poller fetches new messages of a room on a fixed interval. The first fetch
// loads recent history; later ones only ask for messages after the newest seen.
type Poller struct {
	client   *Client
	roomID   string
	interval time.Duration
	log      *zerolog.Logger

	lastID  *int64
	refresh chan struct{}
}

// NewPoller creates a poller for roomID. A non-positive interval uses DefaultPollInterval.
func NewPoller(c *Client, roomID string, interval time.Duration, logger *zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Poller{
		client:   c,
		roomID:   roomID,
		interval: interval,
		log:      logger,
		refresh:  make(chan struct{}, 1),
	}
}

// Refresh asks a running poller to fetch now instead of waiting for the next tick.
func (p *Poller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Poll performs a single fetch and returns the messages not seen before.
func (p *Poller) Poll(ctx context.Context) ([]chat.MessageView, error) {
	limit := 0
	if p.lastID == nil {
		limit = historyLimit
	}

	msgs, err := p.client.GetMessages(ctx, p.roomID, limit, p.lastID)
	if err != nil {
		return nil, err
	}
	if n := len(msgs); n > 0 {
		last := msgs[n-1].ID
		p.lastID = &last
	}
	return msgs, nil
}

// Run polls immediately and then on every tick or Refresh until ctx is done, handing new
// messages to onMessages. Failed polls are logged and retried on the next tick.
func (p *Poller) Run(ctx context.Context, onMessages func([]chat.MessageView)) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		msgs, err := p.Poll(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			p.log.Warn().Err(err).Str("room", p.roomID).Msg("poll messages")
		case len(msgs) > 0:
			onMessages(msgs)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-p.refresh:
		}
	}
}
