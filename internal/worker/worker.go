// Package worker consumes soundbite jobs from NATS and drives them through
// synthesis to a terminal status.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/example/soundbite/internal/soundbite/domain"
)

var jobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "soundbite_jobs_processed_total",
	Help: "Soundbite jobs consumed from the queue, grouped by outcome.",
}, []string{"result"})

// Config defines tunables for the worker.
type Config struct {
	Subject    string
	JobTimeout time.Duration
}

// Worker subscribes to the job subject and processes each message.
type Worker struct {
	conn   *nats.Conn
	repo   domain.Repository
	synth  domain.Synthesizer
	logger *zap.Logger
	cfg    Config
	tracer trace.Tracer
}

// New constructs a worker.
func New(conn *nats.Conn, repo domain.Repository, synth domain.Synthesizer, logger *zap.Logger, cfg Config) *Worker {
	if cfg.Subject == "" {
		cfg.Subject = "soundbite.jobs"
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		conn:   conn,
		repo:   repo,
		synth:  synth,
		logger: logger,
		cfg:    cfg,
		tracer: otel.Tracer("soundbite.worker"),
	}
}

// Run subscribes and blocks until the context is cancelled, then drains.
func (w *Worker) Run(ctx context.Context) error {
	if w.conn == nil {
		return errors.New("worker requires a NATS connection")
	}
	sub, err := w.conn.Subscribe(w.cfg.Subject, func(msg *nats.Msg) {
		jobCtx, cancel := context.WithTimeout(context.Background(), w.cfg.JobTimeout)
		defer cancel()
		if err := w.Process(jobCtx, msg.Data); err != nil {
			w.logger.Error("job processing failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", w.cfg.Subject, err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("drain subscription: %w", err)
	}
	return nil
}

// Process handles one job payload: mark processing, synthesize, record the
// outcome. Exported so the loop is testable without a broker.
func (w *Worker) Process(ctx context.Context, payload []byte) error {
	ctx, span := w.tracer.Start(ctx, "worker.process")
	defer span.End()

	var job domain.Job
	if err := json.Unmarshal(payload, &job); err != nil {
		jobsProcessed.WithLabelValues("invalid").Inc()
		return fmt.Errorf("decode job: %w", err)
	}

	sb, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		jobsProcessed.WithLabelValues("missing").Inc()
		return fmt.Errorf("load job %s: %w", job.ID, err)
	}

	sb.Status = domain.StatusProcessing
	sb.UpdatedAt = time.Now().UTC()
	if sb, err = w.repo.Update(ctx, sb); err != nil {
		jobsProcessed.WithLabelValues("error").Inc()
		return fmt.Errorf("mark processing %s: %w", job.ID, err)
	}

	audioKey, synthErr := w.synth.Synthesize(ctx, job)
	sb.UpdatedAt = time.Now().UTC()
	if synthErr != nil {
		sb.Status = domain.StatusError
		if _, err := w.repo.Update(ctx, sb); err != nil {
			w.logger.Error("failed to record job error", zap.String("id", job.ID.String()), zap.Error(err))
		}
		jobsProcessed.WithLabelValues("error").Inc()
		return fmt.Errorf("synthesize %s: %w", job.ID, synthErr)
	}

	sb.Status = domain.StatusReady
	sb.AudioKey = audioKey
	if _, err := w.repo.Update(ctx, sb); err != nil {
		jobsProcessed.WithLabelValues("error").Inc()
		return fmt.Errorf("mark ready %s: %w", job.ID, err)
	}

	jobsProcessed.WithLabelValues("ready").Inc()
	w.logger.Info("soundbite ready",
		zap.String("id", job.ID.String()),
		zap.String("audio_key", audioKey))
	return nil
}
