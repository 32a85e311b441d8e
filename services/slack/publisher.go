package slack

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/slack-go/slack"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"github.com/customeros/mailbridge/config"
	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/internal/enum"
	mberrors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/tracing"
	"github.com/customeros/mailbridge/internal/utils"
)

// Slack rejects message text above 40000 characters.
const maxMessageRunes = 39000

const timeLayout = "2006-01-02 15:04:05"

type slackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	UploadFileV2Context(ctx context.Context, params slack.UploadFileV2Parameters) (*slack.FileSummary, error)
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
}

// SlackPublisher announces each message in the channel and threads the body
// and attachments under the announcement.
type SlackPublisher struct {
	api     slackAPI
	cfg     *config.SlackConfig
	log     logger.Logger
	limiter *rate.Limiter
}

func NewSlackPublisher(cfg *config.SlackConfig, log logger.Logger) *SlackPublisher {
	return newSlackPublisher(slack.New(cfg.ApiToken), cfg, log)
}

func newSlackPublisher(api slackAPI, cfg *config.SlackConfig, log logger.Logger) *SlackPublisher {
	return &SlackPublisher{
		api:     api,
		cfg:     cfg,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
	}
}

func (p *SlackPublisher) Name() enum.SinkName {
	return enum.SinkSlack
}

// Check verifies the token is accepted by Slack.
func (p *SlackPublisher) Check(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := p.api.AuthTestContext(ctx)
	if err != nil {
		return errors.Wrap(err, "slack auth test")
	}
	p.log.Infof("Slack token valid for %s in team %s", resp.User, resp.Team)
	return nil
}

func (p *SlackPublisher) Publish(ctx context.Context, msg *dto.NormalizedMessage) (*dto.DeliveryReceipt, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SlackPublisher.Publish")
	defer span.Finish()
	tracing.SetDefaultPublisherSpanTags(ctx, span)
	tracing.TagEntity(span, msg.MessageID)

	threadTS, err := p.post(ctx, p.summaryOptions(msg)...)
	if err != nil {
		tracing.TraceErr(span, err)
		p.reportError(ctx, err)
		return nil, mberrors.Publish("slack.summary", err)
	}

	receipt := &dto.DeliveryReceipt{
		ID:       threadTS,
		Sink:     enum.SinkSlack,
		Channel:  p.cfg.Channel,
		ThreadTS: threadTS,
	}

	var threadErr error
	if body := strings.TrimSpace(msg.Body); body != "" {
		_, postErr := p.post(ctx, p.bodyOptions(threadTS, msg.Body)...)
		threadErr = multierr.Append(threadErr, errors.Wrap(postErr, "post body"))
	}

	for i, attachment := range msg.Attachments {
		filename := utils.AttachmentFilename(attachment.Filename, attachment.ContentType, i)
		if uploadErr := p.upload(ctx, threadTS, filename, attachment.Content); uploadErr != nil {
			threadErr = multierr.Append(threadErr, errors.Wrapf(uploadErr, "upload %s", filename))
			continue
		}
		receipt.Uploaded++
	}

	if threadErr != nil {
		tracing.TraceErr(span, threadErr)
		p.reportError(ctx, threadErr)
		return receipt, mberrors.Publish("slack.thread", threadErr)
	}
	return receipt, nil
}

func (p *SlackPublisher) summaryOptions(msg *dto.NormalizedMessage) []slack.MsgOption {
	text := fmt.Sprintf("📧📧📧\n*Sender:* %s\n*Recipients:* %s\n*Time:* %s UTC\n*Subject:* %s",
		msg.Sender, msg.Recipients, msg.Timestamp.UTC().Format(timeLayout), msg.Subject)

	return append([]slack.MsgOption{
		slack.MsgOptionText(text, false),
		slack.MsgOptionParse(true),
	}, p.unfurlOptions()...)
}

func (p *SlackPublisher) bodyOptions(threadTS, body string) []slack.MsgOption {
	return append([]slack.MsgOption{
		slack.MsgOptionText(utils.Truncate(body, maxMessageRunes), false),
		slack.MsgOptionTS(threadTS),
	}, p.unfurlOptions()...)
}

func (p *SlackPublisher) unfurlOptions() []slack.MsgOption {
	var opts []slack.MsgOption
	if p.cfg.UnfurlLinks {
		opts = append(opts, slack.MsgOptionEnableLinkUnfurl())
	} else {
		opts = append(opts, slack.MsgOptionDisableLinkUnfurl())
	}
	// media unfurling is on by default in Slack
	if !p.cfg.UnfurlMedia {
		opts = append(opts, slack.MsgOptionDisableMediaUnfurl())
	}
	return opts
}

func (p *SlackPublisher) post(ctx context.Context, opts ...slack.MsgOption) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	_, ts, err := p.api.PostMessageContext(ctx, p.cfg.Channel, opts...)
	return ts, err
}

func (p *SlackPublisher) upload(ctx context.Context, threadTS, filename string, content []byte) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := p.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Reader:          bytes.NewReader(content),
		FileSize:        len(content),
		Filename:        filename,
		Title:           filename,
		Channel:         p.cfg.Channel,
		ThreadTimestamp: threadTS,
	})
	return err
}

// reportError tells the channel a delivery went wrong. Its own failure is only logged.
func (p *SlackPublisher) reportError(ctx context.Context, cause error) {
	text := cause.Error()
	if p.cfg.AdministratorId != "" {
		text = fmt.Sprintf("<@%s> %s", p.cfg.AdministratorId, text)
	}

	if _, err := p.post(ctx, slack.MsgOptionText(text, false)); err != nil {
		p.log.Errorf("Failed to report slack error %q to channel: %v", cause.Error(), err)
	}
}
