package reconciler

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/ybenkirane/atlaspay/internal/apperrors"
	"github.com/ybenkirane/atlaspay/internal/logger"
	"github.com/ybenkirane/atlaspay/internal/models"
)

type applier interface {
	Apply(ctx context.Context, requestID uuid.UUID) (models.LedgerEntry, error)
}

// Consumer drains the producer channel with a pool of workers and applies
// every request it receives
type Consumer struct {
	countWorkers int
	applier      applier
	logger       logger.Logger
}

func (c *Consumer) Consume(ctx context.Context, in <-chan models.TransactionRequest) <-chan struct{} {
	idleStopped := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < c.countWorkers; i++ {
		wg.Add(1)
		go func() {
			c.worker(ctx, in)
			wg.Done()
		}()
	}

	go func() {
		defer close(idleStopped)
		wg.Wait()
		c.logger.Debug("Reconciler consumer stopped")
	}()

	return idleStopped
}

func (c *Consumer) worker(ctx context.Context, in <-chan models.TransactionRequest) {
	for {
		select {
		case <-ctx.Done():
			return

		case request, ok := <-in:
			if !ok {
				c.logger.Debug("Reconciler worker stopped, input channel closed")
				return
			}

			entry, err := c.applier.Apply(ctx, request.ID)

			switch {
			case err == nil:
				c.logger.Info("Request applied",
					"request_id", request.ID,
					"account_id", request.AccountID,
					"kind", request.Kind,
					"balance_after", entry.BalanceAfter,
				)

			case errors.Is(err, apperrors.ErrBalanceInsufficient):
				// Request is rejected with a reason by the apply path itself
				c.logger.Warn("Approved withdrawal no longer covered by balance, rejected",
					"request_id", request.ID,
					"account_id", request.AccountID,
				)

			case errors.Is(err, apperrors.ErrContention):
				// Leave the request approved, next producer tick retries it
				c.logger.Warn("Request left for retry after contention", "request_id", request.ID)

			case errors.Is(err, apperrors.ErrInvalidTransition):
				// Another worker got there first, nothing to do

			default:
				c.logger.Error("Failed to apply request", "error", err, "request_id", request.ID)
			}
		}
	}
}
