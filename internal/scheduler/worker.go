package scheduler

import (
	"context"
	"fmt"

	"beneficios_backend/internal/solicitacao/service"
	"beneficios_backend/platform/config"
	"beneficios_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Renewer evaluates the renewal of one concluded request.
type Renewer interface {
	Renew(ctx context.Context, parentID uuid.UUID) (service.RenewalResult, error)
}

// OutboxDeliverer sends one notification outbox record.
type OutboxDeliverer interface {
	Deliver(ctx context.Context, outboxID uuid.UUID) error
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	renewer  Renewer
	delivery OutboxDeliverer
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, renewer Renewer, delivery OutboxDeliverer, log *logger.Logger) (*Worker, error) {
	opt, queue, err := connection(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	return newWorker(server, renewer, delivery, log), nil
}

func newWorker(server *asynq.Server, renewer Renewer, delivery OutboxDeliverer, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.Nop()
	}
	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		renewer:  renewer,
		delivery: delivery,
		log:      log,
	}

	mux.HandleFunc(TaskRenewalDue, w.handleRenewalDue)
	mux.HandleFunc(TaskNotificationOutboxDue, w.handleNotificationOutboxDue)
	return w
}

func (w *Worker) handleRenewalDue(ctx context.Context, task *asynq.Task) error {
	if w.renewer == nil {
		return nil
	}

	payload, err := ParseRenewalDuePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	requestID, err := uuid.Parse(payload.SolicitacaoID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	result, err := w.renewer.Renew(ctx, requestID)
	if err != nil {
		return err
	}
	w.log.WithContext(ctx).Info("renewal task processed", "solicitacao_id", requestID, "outcome", result.Outcome)
	return nil
}

func (w *Worker) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	if w.delivery == nil {
		return nil
	}

	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	// Retries are scheduled through the outbox row, not by asynq.
	if err := w.delivery.Deliver(ctx, outboxID); err != nil {
		w.log.WithContext(ctx).Warn("notification delivery failed", "outboxId", outboxID, "error", err)
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
