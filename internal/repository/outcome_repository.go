package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/identity-service/internal/domain"
)

const (
	outcomeKeyPrefix = "registration:outcome:"
	pendingSetKey    = "registration:pending"
	outcomeTTL       = 30 * 24 * time.Hour
)

// ErrOutcomeNotFound is returned when no outcome is recorded for an email.
var ErrOutcomeNotFound = errors.New("registration outcome not found")

// OutcomeRepository records registration outcomes and tracks the ones
// still waiting for the identity provider to catch up.
type OutcomeRepository interface {
	Record(ctx context.Context, outcome domain.RegistrationOutcome) error
	Get(ctx context.Context, email string) (*domain.RegistrationOutcome, error)
	Pending(ctx context.Context, limit int64) ([]domain.RegistrationOutcome, error)
}

type redisOutcomeRepository struct {
	client redis.Cmdable
}

// NewOutcomeRepository returns a Redis-backed outcome ledger.
func NewOutcomeRepository(client redis.Cmdable) OutcomeRepository {
	return &redisOutcomeRepository{client: client}
}

func (r *redisOutcomeRepository) Record(ctx context.Context, outcome domain.RegistrationOutcome) error {
	if outcome.RecordedAt.IsZero() {
		outcome.RecordedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(outcome)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, outcomeKeyPrefix+outcome.Email, payload, outcomeTTL)
		if outcome.Status == domain.OutcomePartial {
			pipe.SAdd(ctx, pendingSetKey, outcome.Email)
		} else {
			pipe.SRem(ctx, pendingSetKey, outcome.Email)
		}
		return nil
	})
	return err
}

func (r *redisOutcomeRepository) Get(ctx context.Context, email string) (*domain.RegistrationOutcome, error) {
	payload, err := r.client.Get(ctx, outcomeKeyPrefix+email).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrOutcomeNotFound
		}
		return nil, err
	}
	var outcome domain.RegistrationOutcome
	if err := json.Unmarshal(payload, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

func (r *redisOutcomeRepository) Pending(ctx context.Context, limit int64) ([]domain.RegistrationOutcome, error) {
	emails, err := r.client.SRandMemberN(ctx, pendingSetKey, limit).Result()
	if err != nil {
		return nil, err
	}

	outcomes := make([]domain.RegistrationOutcome, 0, len(emails))
	for _, email := range emails {
		outcome, err := r.Get(ctx, email)
		if errors.Is(err, ErrOutcomeNotFound) {
			// Outcome expired; nothing left to reconcile against.
			r.client.SRem(ctx, pendingSetKey, email)
			continue
		}
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, *outcome)
	}
	return outcomes, nil
}
