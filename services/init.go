package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/customeros/mailbridge/config"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/utils"
	"github.com/customeros/mailbridge/services/delivery"
	"github.com/customeros/mailbridge/services/email_filter"
	"github.com/customeros/mailbridge/services/email_processor"
	"github.com/customeros/mailbridge/services/events"
	"github.com/customeros/mailbridge/services/imap"
	slackpublisher "github.com/customeros/mailbridge/services/slack"
	"github.com/customeros/mailbridge/services/storage"
	"github.com/customeros/mailbridge/services/supervisor"
)

type Services struct {
	// optional sinks stay nil when not configured
	EventsService  *events.EventsService
	StorageService interfaces.StorageService

	SlackPublisher *slackpublisher.SlackPublisher
	Dispatcher     *delivery.Dispatcher
	Session        *imap.Session
	Supervisor     *supervisor.Supervisor

	log logger.Logger
}

func InitServices(cfg *config.Config, log logger.Logger) (*Services, error) {
	services := Services{
		SlackPublisher: slackpublisher.NewSlackPublisher(cfg.SlackConfig, log),
		Supervisor:     supervisor.NewSupervisor(cfg.RetryConfig, log),
		log:            log,
	}
	sinks := []interfaces.Publisher{services.SlackPublisher}

	if cfg.AppConfig.RabbitMQURL != "" {
		eventsService, err := events.NewEventsService(cfg.AppConfig.RabbitMQURL, log, events.DefaultPublisherConfig())
		if err != nil {
			return nil, errors.Wrap(err, "failed to init events service")
		}
		services.EventsService = eventsService
		sinks = append(sinks, eventsService.Sink)
	}

	if cfg.StorageConfig.Enabled {
		storageService, err := storage.NewStorageServiceFromConfig(cfg.StorageConfig)
		if err != nil {
			_ = services.Close()
			return nil, errors.Wrap(err, "failed to init storage service")
		}
		services.StorageService = storageService
		sinks = append(sinks, storage.NewArchiveSink(storageService, log))
	}

	services.Dispatcher = delivery.NewDispatcher(log, email_filter.NewEmailFilterService(), sinks...)
	services.Session = imap.NewSession(
		cfg.ImapConfig,
		log,
		email_processor.NewExtractor(),
		imap.ClientFactory(cfg.ImapConfig, log),
	)

	return &services, nil
}

// Check verifies each configured dependency once.
func (s *Services) Check(ctx context.Context) error {
	names := make([]string, 0, len(s.Dispatcher.Sinks()))
	for _, sink := range s.Dispatcher.Sinks() {
		names = append(names, sink.Name().String())
	}
	s.log.Infof("Configured sinks: %s", strings.Join(names, ", "))

	var err error
	err = multierr.Append(err, errors.Wrap(s.Session.Check(ctx), "imap"))
	err = multierr.Append(err, errors.Wrap(s.SlackPublisher.Check(ctx), "slack"))

	if s.StorageService != nil {
		key := "healthcheck/" + utils.GenerateNanoIDWithPrefix("check", 16)
		if uploadErr := s.StorageService.Upload(ctx, key, []byte("ok"), "text/plain"); uploadErr != nil {
			err = multierr.Append(err, errors.Wrap(uploadErr, "storage upload"))
		} else {
			err = multierr.Append(err, errors.Wrap(s.StorageService.Delete(ctx, key), "storage delete"))
		}
	}

	return err
}

func (s *Services) Close() error {
	var err error
	if s.EventsService != nil {
		err = multierr.Append(err, s.EventsService.Close())
	}
	return err
}
