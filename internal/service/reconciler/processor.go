package reconciler

import (
	"context"
	"time"

	"github.com/ybenkirane/atlaspay/internal/logger"
	"github.com/ybenkirane/atlaspay/internal/models"
	"github.com/ybenkirane/atlaspay/internal/repository"
)

const (
	defaultCountWorkers    = 4
	defaultProduceInterval = 5 * time.Second
	defaultBatchSize       = 100
)

type ProcessorConfig struct {
	// Number of workers applying requests, default 4
	CountWorkers int

	// Poll interval for approved requests, default 5s
	ProduceInterval time.Duration

	// Max approved requests fetched per tick, default 100
	BatchSize int
}

// Processor is the background half of the reconciler: it polls approved
// requests and applies them until the context is cancelled
type Processor struct {
	producer *Producer
	consumer *Consumer
	logger   logger.Logger
}

func NewProcessor(cfg ProcessorConfig, reconciler *Reconciler, requests requestLister, l logger.Logger) *Processor {
	if cfg.CountWorkers <= 0 {
		cfg.CountWorkers = defaultCountWorkers
	}
	if cfg.ProduceInterval <= 0 {
		cfg.ProduceInterval = defaultProduceInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	if l == nil {
		l = logger.NewNoOp()
	}

	return &Processor{
		producer: &Producer{
			interval:  cfg.ProduceInterval,
			batchSize: cfg.BatchSize,
			requests:  requests,
			logger:    l,
		},
		consumer: &Consumer{
			countWorkers: cfg.CountWorkers,
			applier:      reconciler,
			logger:       l,
		},
		logger: l,
	}
}

// NewProcessorFromStorage wires the processor over the storage directly
func NewProcessorFromStorage(cfg ProcessorConfig, reconciler *Reconciler, storage repository.Storage, l logger.Logger) *Processor {
	return NewProcessor(cfg, reconciler, storageLister{storage}, l)
}

type storageLister struct {
	storage repository.Storage
}

func (s storageLister) ListRequests(ctx context.Context, opts repository.ListRequestsOpts) ([]models.TransactionRequest, error) {
	return s.storage.Request().ListRequests(ctx, opts)
}

func (p *Processor) Process(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	requestChan := make(chan models.TransactionRequest)

	producerStopped := p.producer.Produce(ctx, requestChan)
	consumerStopped := p.consumer.Consume(ctx, requestChan)

	go func() {
		defer close(idleStopped)
		defer close(requestChan)
		<-producerStopped
		<-consumerStopped
		p.logger.Debug("Reconciler processor stopped")
	}()

	return idleStopped
}
