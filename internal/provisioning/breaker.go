package provisioning

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

// BreakerService fails fast while the provisioning endpoint keeps failing.
type BreakerService struct {
	next    Service
	breaker *gobreaker.CircuitBreaker[*Notification]
}

func NewBreakerService(next Service, consecutiveFailures uint32, openTimeout time.Duration) *BreakerService {
	if consecutiveFailures == 0 {
		consecutiveFailures = 1
	}

	settings := gobreaker.Settings{
		Name:        "provisioning",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("provisioning circuit breaker changed state")
		},
	}

	return &BreakerService{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*Notification](settings),
	}
}

func (s *BreakerService) NotifyRenewal(ctx context.Context, nip string) (*Notification, error) {
	notification, err := s.breaker.Execute(func() (*Notification, error) {
		return s.next.NotifyRenewal(ctx, nip)
	})
	if notification == nil {
		notification = &Notification{Nip: nip}
	}
	return notification, err
}

func (s *BreakerService) State() gobreaker.State {
	return s.breaker.State()
}
