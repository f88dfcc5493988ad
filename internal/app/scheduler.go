package app

import (
	"context"
	"errors"
	"time"

	"github.com/UrrutiaTs17/TutoUIS-Project/internal/service"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler drives the periodic session state reconcile. A tick that
// fires while the previous run is still executing is skipped, not queued:
// cron's SkipIfStillRunning guards the timer path and the state service's
// own run gate guards manual triggers.
type Scheduler struct {
	cron   *cron.Cron
	states *service.StateService
	logger *zap.Logger
}

func NewScheduler(states *service.StateService, interval time.Duration, logger *zap.Logger) *Scheduler {
	cronLog := &cronLogger{sugar: logger.Named("cron").Sugar()}

	c := cron.New(cron.WithChain(
		cron.Recover(cronLog),
		cron.SkipIfStillRunning(cronLog),
	))

	s := &Scheduler{
		cron:   c,
		states: states,
		logger: logger,
	}

	c.Schedule(cron.Every(interval), cron.FuncJob(s.runReconcile))

	return s
}

// Start launches the timer and fires one immediate run so freshly
// restarted processes do not wait a whole interval with stale states.
func (s *Scheduler) Start() {
	s.logger.Info("Starting state reconcile scheduler")
	go s.runReconcile()
	s.cron.Start()
}

// Stop halts the timer and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping state reconcile scheduler")
	<-s.cron.Stop().Done()
}

// ForceRun triggers a reconcile outside the timer. Safe to call anytime;
// a run already in progress makes this a no-op.
func (s *Scheduler) ForceRun(ctx context.Context) (service.ReconcileSummary, error) {
	summary, err := s.states.Run(ctx)
	if errors.Is(err, service.ErrReconcileInProgress) {
		s.logger.Info("Reconcile already running, manual trigger skipped")
		return summary, nil
	}
	return summary, err
}

func (s *Scheduler) runReconcile() {
	if _, err := s.states.Run(context.Background()); err != nil {
		if errors.Is(err, service.ErrReconcileInProgress) {
			return
		}
		s.logger.Error("State reconcile failed", zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
