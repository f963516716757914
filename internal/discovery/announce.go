package discovery

import (
	"context"
	"time"

	"github.com/datallboy/gocol/internal/domain"
	"github.com/datallboy/gocol/internal/infra/logger"
)

// Announcer publishes a console record for a bounded time.
type Announcer struct {
	responder Responder
	log       *logger.Logger
	ttl       time.Duration
}

func NewAnnouncer(r Responder, log *logger.Logger, ttl time.Duration) *Announcer {
	return &Announcer{responder: r, log: log, ttl: ttl}
}

// Announce registers c, keeps it live until the TTL elapses or ctx is done,
// then withdraws it. Nothing is published when an error is returned.
func (a *Announcer) Announce(ctx context.Context, c domain.Console) error {
	rec, err := BuildServiceRecord(c)
	if err != nil {
		return &domain.AnnounceError{Op: "build", Err: err}
	}

	reg, err := a.responder.Register(rec)
	if err != nil {
		return &domain.AnnounceError{Op: "register", Err: err}
	}
	defer reg.Shutdown()

	a.log.Info("Announcing %s -> %s:%d %v for %s", rec.FullName(), rec.HostName, rec.Port, rec.Text, a.ttl)

	timer := time.NewTimer(a.ttl)
	defer timer.Stop()

	select {
	case <-timer.C:
		a.log.Info("Announcement of %s expired", rec.FullName())
	case <-ctx.Done():
		a.log.Info("Withdrawing %s", rec.FullName())
	}

	return nil
}
