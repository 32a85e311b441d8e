package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailbridge/interfaces"
	cron_config "github.com/customeros/mailbridge/internal/cron/config"
	"github.com/customeros/mailbridge/internal/enum"
	"github.com/customeros/mailbridge/internal/logger"
)

type fakeSession struct {
	calls int
}

func (f *fakeSession) Run(context.Context, interfaces.DeliverFunc) error { return nil }

func (f *fakeSession) Status() interfaces.SessionStatus {
	f.calls++
	return interfaces.SessionStatus{
		Connected: true,
		State:     enum.ConnStateSelected,
		Phase:     enum.SessionPhaseIdling,
		SessionId: "s1",
		Delivered: 3,
		LastPoll:  time.Now(),
		LastError: "previous failure",
	}
}

type fakeRestarts struct{}

func (fakeRestarts) Restarts() int64     { return 2 }
func (fakeRestarts) Suppressions() int64 { return 1 }

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func TestNewCronManager(t *testing.T) {
	cfg := &cron_config.Config{CronScheduleHeartbeat: "0 * * * * *"}
	log := getLogger()

	cm := NewCronManager(cfg, log, nil, nil)

	assert.NotNil(t, cm)
	assert.Equal(t, cfg, cm.cfg)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManager_StartCronRegistersHeartbeat(t *testing.T) {
	cm := NewCronManager(&cron_config.Config{CronScheduleHeartbeat: "0 * * * * *"}, getLogger(), &fakeSession{}, fakeRestarts{})

	require.NoError(t, cm.StartCron())
	defer cm.Stop()

	assert.Contains(t, cm.jobIDs, JobHeartbeat)
	assert.Len(t, cm.cron.Entries(), 1)
}

func TestCronManager_EmptyScheduleRegistersNothing(t *testing.T) {
	cm := NewCronManager(&cron_config.Config{}, getLogger(), nil, nil)

	require.NoError(t, cm.StartCron())
	defer cm.Stop()

	assert.Empty(t, cm.jobIDs)
}

func TestCronManager_InvalidSchedule(t *testing.T) {
	cm := NewCronManager(&cron_config.Config{CronScheduleHeartbeat: "not a schedule"}, getLogger(), nil, nil)

	assert.Error(t, cm.StartCron())
}

func TestCronManager_HeartbeatReadsStatus(t *testing.T) {
	session := &fakeSession{}
	cm := NewCronManager(&cron_config.Config{}, getLogger(), session, fakeRestarts{})

	cm.heartbeat("test")
	assert.Equal(t, 1, session.calls)
}

func TestCronManager_RunStopsOnCancel(t *testing.T) {
	cm := NewCronManager(&cron_config.Config{CronScheduleHeartbeat: "0 * * * * *"}, getLogger(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cm.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	select {
	case <-cm.stopCh:
	default:
		t.Error("Stop channel was not closed")
	}
}
