package reconciler

import (
	"context"
	"time"

	"github.com/ybenkirane/atlaspay/internal/logger"
	"github.com/ybenkirane/atlaspay/internal/models"
	"github.com/ybenkirane/atlaspay/internal/repository"
)

type requestLister interface {
	ListRequests(ctx context.Context, opts repository.ListRequestsOpts) ([]models.TransactionRequest, error)
}

// Producer periodically fetches approved requests that still await application
// and feeds them to the consumer workers
type Producer struct {
	interval  time.Duration
	batchSize int
	requests  requestLister
	logger    logger.Logger
}

func (p *Producer) Produce(ctx context.Context, out chan<- models.TransactionRequest) <-chan struct{} {
	idleStopped := make(chan struct{})
	p.logger.Debug("Starting reconciler producer", "interval", p.interval, "batch_size", p.batchSize)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Debug("Reconciler producer stopped by context")
				return

			case <-ticker.C:
				requests, err := p.requests.ListRequests(ctx, repository.ListRequestsOpts{
					Statuses: []string{models.RequestStatusApproved},
					Limit:    p.batchSize,
				})
				if err != nil {
					p.logger.Error("Failed to list approved requests", "error", err)
					continue
				}

				for _, request := range requests {
					select {
					case <-ctx.Done():
						p.logger.Debug("Reconciler producer stopped by context while sending requests")
						return
					case out <- request:
					}
				}
			}
		}
	}()

	return idleStopped
}
