package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/customeros/mailbridge/config"
	"github.com/customeros/mailbridge/internal/cron"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/tracing"
	"github.com/customeros/mailbridge/internal/utils"
	"github.com/customeros/mailbridge/services"
)

type Server struct {
	config       *config.Config
	log          logger.Logger
	services     *services.Services
	cron         *cron.CronManager
	tracerCloser io.Closer
}

func NewServer(cfg *config.Config) (*Server, error) {
	logger := logger.NewAppLogger(cfg.Logger)
	logger.InitLogger()

	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, logger)
	if err != nil {
		return nil, errors.Wrap(err, "could not initialize jaeger tracer")
	}
	opentracing.SetGlobalTracer(tracer)

	svcs, err := services.InitServices(cfg, logger)
	if err != nil {
		closer.Close()
		return nil, err
	}

	return &Server{
		config:       cfg,
		log:          logger,
		services:     svcs,
		cron:         cron.NewCronManager(cfg.CronConfig, logger, svcs.Session, svcs.Supervisor),
		tracerCloser: closer,
	}, nil
}

func (s *Server) recoverWithJaeger(name string, errp *error) {
	if r := recover(); r != nil {
		span := opentracing.GlobalTracer().StartSpan(
			fmt.Sprintf("panic.%s", name),
		)
		defer span.Finish()

		ext.Error.Set(span, true)
		span.LogKV(
			"event", "panic",
			"process", name,
			"error", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)

		s.log.Errorf("❌ Panic in %s: %v\n%s", name, r, debug.Stack())
		if errp != nil {
			*errp = errors.Errorf("panic in %s: %v", name, r)
		}
	}
}

// wrapGoroutine turns a panic in fn into an error.
func (s *Server) wrapGoroutine(name string, fn func() error) (err error) {
	defer s.recoverWithJaeger(name, &err)
	return fn()
}

func (s *Server) rootContext(ctx context.Context) context.Context {
	return utils.WithCustomContext(ctx, &utils.CustomContext{
		AppSource: s.config.AppConfig.AppName,
		Mailbox:   s.config.ImapConfig.User,
		Folder:    s.config.ImapConfig.Folder,
	})
}

// Run blocks until a signal arrives or the supervisor gives up. The mailbox
// session is shut down first, then the auxiliary tasks.
func (s *Server) Run(ctx context.Context) error {
	defer s.close()

	sessionCtx, stop := signal.NotifyContext(s.rootContext(ctx), os.Interrupt, syscall.SIGTERM)
	defer stop()

	auxCtx, cancelAux := context.WithCancel(s.rootContext(context.Background()))
	defer cancelAux()

	aux, auxCtx := errgroup.WithContext(auxCtx)
	aux.Go(func() error {
		return s.wrapGoroutine("cron", func() error {
			return s.cron.Run(auxCtx)
		})
	})

	s.log.Infof("MailBridge watching %s/%s on %s", s.config.ImapConfig.User, s.config.ImapConfig.Folder, s.config.ImapConfig.Address())

	sessionErr := s.wrapGoroutine("session", func() error {
		return s.services.Supervisor.Supervise(sessionCtx, func(ctx context.Context) error {
			return s.services.Session.Run(ctx, s.services.Dispatcher.Deliver)
		})
	})

	shutdownRequested := sessionCtx.Err() != nil
	if shutdownRequested {
		s.log.Info("Shutdown requested, mailbox session closed")
	} else {
		s.log.Errorf("Mailbox session stopped: %v", sessionErr)
	}

	cancelAux()
	s.waitForAux(aux)

	if shutdownRequested && errors.Is(sessionErr, context.Canceled) {
		return nil
	}
	return sessionErr
}

func (s *Server) waitForAux(aux *errgroup.Group) {
	done := make(chan error, 1)
	go func() { done <- aux.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			s.log.Errorf("Auxiliary task failed: %v", err)
		}
	case <-time.After(s.config.AppConfig.ShutdownTimeout):
		s.log.Warnf("⚠️ Auxiliary tasks did not stop within %s", s.config.AppConfig.ShutdownTimeout)
	}
}

// Check runs one round-trip against every configured dependency.
func (s *Server) Check(ctx context.Context) error {
	defer s.close()

	ctx, cancel := context.WithTimeout(s.rootContext(ctx), s.config.ImapConfig.ConnectTimeout+s.config.ImapConfig.CommandTimeout*2)
	defer cancel()

	if err := s.services.Check(ctx); err != nil {
		s.log.Errorf("❌ Check failed: %v", err)
		return err
	}
	s.log.Info("✅ All checks passed")
	return nil
}

func (s *Server) close() {
	if err := s.services.Close(); err != nil {
		s.log.Warnf("Error closing services: %v", err)
	}
	if s.tracerCloser != nil {
		s.tracerCloser.Close()
	}
	s.log.Sync()
}
