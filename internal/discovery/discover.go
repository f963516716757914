package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/datallboy/gocol/internal/domain"
	"github.com/datallboy/gocol/internal/infra/logger"
)

// Policy decides when a browse session ends.
type Policy int

const (
	// PolicyFirst returns as soon as one console resolves.
	PolicyFirst Policy = iota
	// PolicyAll waits out the whole window and returns every distinct console.
	PolicyAll
)

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "first":
		return PolicyFirst, nil
	case "all":
		return PolicyAll, nil
	default:
		return PolicyFirst, fmt.Errorf("unknown discovery policy %q", s)
	}
}

func (p Policy) String() string {
	if p == PolicyAll {
		return "all"
	}
	return "first"
}

// Discoverer browses for consoles.
type Discoverer struct {
	responder Responder
	log       *logger.Logger
	timeout   time.Duration
	policy    Policy
}

func NewDiscoverer(r Responder, log *logger.Logger, timeout time.Duration, policy Policy) *Discoverer {
	return &Discoverer{responder: r, log: log, timeout: timeout, policy: policy}
}

// Discover blocks for at most the configured timeout. Consoles are
// deduplicated by identifier and returned in resolution order.
func (d *Discoverer) Discover(parent context.Context) ([]domain.Console, error) {
	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()

	records := make(chan ServiceRecord, browseBuffer)
	if err := d.responder.Browse(ctx, domain.ServiceType, domain.ServiceDomain, records); err != nil {
		return nil, &domain.DiscoveryError{Op: "browse", Err: err}
	}

	d.log.Debug("Browsing %s.%s (policy %s, timeout %s)", domain.ServiceType, domain.ServiceDomain, d.policy, d.timeout)

	var (
		consoles  []domain.Console
		seen      = make(map[string]bool)
		decodeErr error
	)

	for {
		select {
		case rec, ok := <-records:
			if !ok {
				return d.finish(parent, consoles, decodeErr)
			}

			c, err := ToConsole(rec)
			if err != nil {
				if d.policy == PolicyFirst {
					return nil, &domain.DiscoveryError{Op: "decode", Err: fmt.Errorf("%s: %w", rec.FullName(), err)}
				}
				d.log.Warn("Skipping malformed record %s: %v", rec.FullName(), err)
				decodeErr = fmt.Errorf("%s: %w", rec.FullName(), err)
				continue
			}

			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true

			d.log.Info("Resolved console %s", c)
			consoles = append(consoles, c)

			if d.policy == PolicyFirst {
				return consoles, nil
			}
		case <-ctx.Done():
			return d.finish(parent, consoles, decodeErr)
		}
	}
}

func (d *Discoverer) finish(parent context.Context, consoles []domain.Console, decodeErr error) ([]domain.Console, error) {
	if len(consoles) > 0 {
		return consoles, nil
	}
	if decodeErr != nil {
		return nil, &domain.DiscoveryError{Op: "decode", Err: decodeErr}
	}
	if err := parent.Err(); err != nil {
		return nil, &domain.DiscoveryError{Op: "resolve", Err: err}
	}
	return nil, &domain.DiscoveryError{Op: "resolve", Err: fmt.Errorf("%w (%s)", domain.ErrDiscoveryTimeout, d.timeout)}
}
