package storage

import (
	"context"
	"path"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/multierr"

	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/enum"
	mberrors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/tracing"
	"github.com/customeros/mailbridge/internal/utils"
)

// ArchiveSink copies attachments into object storage under
// yyyy/mm/dd/<message id>/<filename>.
type ArchiveSink struct {
	storage interfaces.StorageService
	log     logger.Logger
}

func NewArchiveSink(storage interfaces.StorageService, log logger.Logger) *ArchiveSink {
	return &ArchiveSink{storage: storage, log: log}
}

func (a *ArchiveSink) Name() enum.SinkName {
	return enum.SinkArchive
}

// Publish uploads every attachment even when an earlier one fails; the
// receipt lists the keys that made it.
func (a *ArchiveSink) Publish(ctx context.Context, msg *dto.NormalizedMessage) (*dto.DeliveryReceipt, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ArchiveSink.Publish")
	defer span.Finish()
	tracing.SetDefaultPublisherSpanTags(ctx, span)

	folder := utils.SanitizeFilename(msg.MessageID)
	if folder == "" {
		folder = utils.GenerateNanoIDWithPrefix("email", 16)
	}
	tracing.TagEntity(span, folder)

	receipt := &dto.DeliveryReceipt{
		ID:   folder,
		Sink: enum.SinkArchive,
	}

	var err error
	prefix := path.Join(utils.DatePath(msg.Timestamp), folder)
	for i, attachment := range msg.Attachments {
		key := path.Join(prefix, utils.AttachmentFilename(attachment.Filename, attachment.ContentType, i))
		if uploadErr := a.storage.Upload(ctx, key, attachment.Content, attachment.ContentType); uploadErr != nil {
			a.log.Errorf("Failed to archive attachment %s: %v", key, uploadErr)
			err = multierr.Append(err, uploadErr)
			continue
		}
		receipt.Keys = append(receipt.Keys, key)
		receipt.Uploaded++
		if url := a.storage.GetPublicURL(key); url != "" {
			a.log.Debugf("Archived attachment %s at %s", key, url)
		}
	}

	if err != nil {
		tracing.TraceErr(span, err)
		return receipt, mberrors.Publish("archive.upload", err)
	}
	return receipt, nil
}
