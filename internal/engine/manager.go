package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/datallboy/gocol/internal/app"
	"github.com/datallboy/gocol/internal/domain"
	"github.com/datallboy/gocol/internal/infra/logger"
	"github.com/segmentio/ksuid"
)

// Queue runs the transfers for one console, one at a time, in the order
// they were added.
type Queue struct {
	mu         sync.RWMutex
	downloader *Downloader
	store      app.Store
	log        *logger.Logger
	console    domain.Console
	queue      []*domain.Transfer
}

// NewQueue wires d's state observer to the store; store may be nil.
func NewQueue(d *Downloader, store app.Store, console domain.Console, log *logger.Logger) *Queue {
	q := &Queue{
		downloader: d,
		store:      store,
		log:        log,
		console:    console,
	}

	observer := d.OnStateChange
	d.OnStateChange = func(t *domain.Transfer) {
		q.persist(t)
		if observer != nil {
			observer(t)
		}
	}

	return q
}

// Add creates an idle transfer for item and records it.
func (q *Queue) Add(item domain.MetadataItem) (*domain.Transfer, error) {
	if item.Path == "" {
		return nil, fmt.Errorf("item %q has no content path", item.Name())
	}

	t := &domain.Transfer{
		ID:          ksuid.New().String(),
		ConsoleID:   q.console.ID,
		ConsoleName: q.console.Name,
		Item:        item,
		ItemPath:    item.Path,
		FileName:    item.Name(),
		State:       domain.StateIdle,
	}

	if q.store != nil {
		if err := q.store.SaveTransfer(t); err != nil {
			return nil, fmt.Errorf("failed to save transfer: %w", err)
		}
	}

	q.mu.Lock()
	q.queue = append(q.queue, t)
	q.mu.Unlock()

	return t, nil
}

// Run downloads every idle transfer in order. A failed item does not stop
// the rest; cancelling ctx does. The returned error joins every failure.
func (q *Queue) Run(ctx context.Context) error {
	var errs []error

	for {
		next := q.nextIdle()
		if next == nil {
			break
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		if err := q.downloader.Download(ctx, next); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", next.FileName, err))
			if errors.Is(err, context.Canceled) {
				break
			}
		}
	}

	return errors.Join(errs...)
}

func (q *Queue) nextIdle() *domain.Transfer {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, t := range q.queue {
		if t.State == domain.StateIdle {
			return t
		}
	}
	return nil
}

// Items returns a copy of the queue slice in the order items were added.
func (q *Queue) Items() []*domain.Transfer {
	q.mu.RLock()
	defer q.mu.RUnlock()

	items := make([]*domain.Transfer, len(q.queue))
	copy(items, q.queue)
	return items
}

func (q *Queue) persist(t *domain.Transfer) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveTransfer(t); err != nil {
		q.log.Warn("Could not record transfer %s: %v", t.ID, err)
	}
}
