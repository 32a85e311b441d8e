package cron

import (
	"context"
	"os"

	"github.com/pkg/errors"
	cronv3 "github.com/robfig/cron/v3"

	"github.com/customeros/mailbridge/interfaces"
	cron_config "github.com/customeros/mailbridge/internal/cron/config"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/tracing"
)

const JobHeartbeat = "heartbeat"

type RestartCounter interface {
	Restarts() int64
	Suppressions() int64
}

type CronManager struct {
	cfg      *cron_config.Config
	log      logger.Logger
	cron     *cronv3.Cron
	stopCh   chan struct{}
	jobIDs   map[string]cronv3.EntryID
	session  interfaces.SessionManager
	restarts RestartCounter
}

func NewCronManager(cfg *cron_config.Config, log logger.Logger, session interfaces.SessionManager, restarts RestartCounter) *CronManager {
	return &CronManager{
		cfg:      cfg,
		log:      log,
		stopCh:   make(chan struct{}),
		jobIDs:   make(map[string]cronv3.EntryID),
		session:  session,
		restarts: restarts,
	}
}

// Run schedules the jobs and blocks until ctx is done.
func (cm *CronManager) Run(ctx context.Context) error {
	if err := cm.StartCron(); err != nil {
		return err
	}
	<-ctx.Done()
	cm.Stop()
	return nil
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		// Wait for jobs to finish
		<-ctx.Done()
	}
	close(cm.stopCh)
}

func (cm *CronManager) registerJobs(c *cronv3.Cron) error {
	if cm.cfg.CronScheduleHeartbeat == "" {
		return nil
	}

	podName := os.Getenv("POD_NAME")
	if podName == "" {
		podName = "local"
	}
	id, err := c.AddFunc(cm.cfg.CronScheduleHeartbeat, func() {
		defer tracing.RecoverAndLogToJaeger(cm.log)
		cm.heartbeat(podName)
	})
	if err != nil {
		return errors.Wrap(err, "could not add heartbeat cron job")
	}
	cm.jobIDs[JobHeartbeat] = id
	cm.log.Infof("Registered heartbeat job with schedule: %s", cm.cfg.CronScheduleHeartbeat)
	return nil
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() error {
	cm.log.Info("Starting cron manager")
	c := cronv3.New(
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	)
	if err := cm.registerJobs(c); err != nil {
		return err
	}
	c.Start()
	cm.cron = c
	return nil
}

func (cm *CronManager) heartbeat(podName string) {
	span, _ := tracing.StartTracerSpan(context.Background(), "CronManager.heartbeat")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	fields := []interface{}{"pod", podName}
	if cm.session != nil {
		status := cm.session.Status()
		fields = append(fields,
			"connected", status.Connected,
			"state", status.State.String(),
			"phase", status.Phase.String(),
			"sessionId", status.SessionId,
			"delivered", status.Delivered,
			"failed", status.Failed,
			"skipped", status.Skipped,
		)
		if !status.LastPoll.IsZero() {
			fields = append(fields, "lastPoll", status.LastPoll)
		}
		if status.LastError != "" {
			fields = append(fields, "lastError", status.LastError)
		}
	}
	if cm.restarts != nil {
		fields = append(fields, "restarts", cm.restarts.Restarts(), "suppressions", cm.restarts.Suppressions())
	}

	cm.log.With(fields...).Info("Cron heartbeat")
}
