package storage

import (
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// ═══════════════════════════════════════════════════════════════════════════════
// LISTENER - Dedicated LISTEN connection with reconnect handling
// ═══════════════════════════════════════════════════════════════════════════════

// Notification is one delivery from a channel. Reconnected=true means the
// connection was re-established and notifications may have been dropped in
// between; consumers must sweep for unprocessed rows when they see it.
type Notification struct {
	Payload     string
	Reconnected bool
}

// Listener wraps pq.Listener for a single notification channel. LISTEN
// requires its own connection, separate from the query pool.
type Listener struct {
	pq      *pq.Listener
	channel string
	out     chan Notification
}

// NewListener opens the LISTEN connection and subscribes to the channel.
func NewListener(dsn, channel string) (*Listener, error) {
	l := &Listener{
		channel: channel,
		out:     make(chan Notification, 16),
	}

	l.pq = pq.NewListener(dsn, 5*time.Second, time.Minute,
		func(event pq.ListenerEventType, err error) {
			if err != nil {
				log.Warn().Err(err).Str("channel", channel).Msg("Listener connection event")
			}
		})

	if err := l.pq.Listen(channel); err != nil {
		l.pq.Close()
		return nil, err
	}

	go l.run()

	log.Info().Str("channel", channel).Msg("👂 Listening for notifications")
	return l, nil
}

func (l *Listener) run() {
	for {
		select {
		case n, ok := <-l.pq.Notify:
			if !ok {
				close(l.out)
				return
			}
			if n == nil {
				// pq delivers nil after re-establishing a lost connection
				l.out <- Notification{Reconnected: true}
				continue
			}
			l.out <- Notification{Payload: n.Extra}
		case <-time.After(90 * time.Second):
			go func() {
				if err := l.pq.Ping(); err != nil {
					log.Warn().Err(err).Str("channel", l.channel).Msg("Listener ping failed")
				}
			}()
		}
	}
}

// Notifications returns the delivery channel. It is closed by Close.
func (l *Listener) Notifications() <-chan Notification {
	return l.out
}

// Close tears down the LISTEN connection.
func (l *Listener) Close() {
	l.pq.Close()
}
