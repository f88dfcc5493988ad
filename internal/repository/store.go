package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/UrrutiaTs17/TutoUIS-Project/internal/repository/base"
	"github.com/UrrutiaTs17/TutoUIS-Project/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
)

// Store bundles the entity repositories over one pgx pool and implements
// service.Store. InTx hands the callback a Store whose repositories are
// bound to the transaction, so every call inside the callback shares it.
type Store struct {
	*SessionRepository
	*SlotRepository
	*ReservationRepository

	pool *pgxpool.Pool
}

var _ service.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		SessionRepository:     NewSessionRepository(pool),
		SlotRepository:        NewSlotRepository(pool),
		ReservationRepository: NewReservationRepository(pool),
		pool:                  pool,
	}
}

func (s *Store) boundTo(db base.Querier) *Store {
	return &Store{
		SessionRepository:     NewSessionRepository(db),
		SlotRepository:        NewSlotRepository(db),
		ReservationRepository: NewReservationRepository(db),
		pool:                  s.pool,
	}
}

// InTx runs fn inside a transaction. Serialization failures and deadlocks
// are retried with exponential backoff before giving up; any other error
// rolls the transaction back and is returned as-is.
func (s *Store) InTx(ctx context.Context, fn func(service.Store) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(10*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.runTx(ctx, fn)
		if err != nil && base.IsSerializationFailure(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *Store) runTx(ctx context.Context, fn func(service.Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(s.boundTo(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
