package objectclient

import (
	"context"

	"github.com/pkg/errors"

	"github.com/markdave123-py/ivyready/internal/config"
	"github.com/markdave123-py/ivyready/internal/core"
)

// NewObjectClient returns the attachment backend selected by ATTACHMENT_BACKEND.
func NewObjectClient(ctx context.Context, cfg *config.Config) (core.ObjectClient, error) {
	switch cfg.AttachmentBackend {
	case config.AttachmentsLocal, "":
		return NewLocalClient(cfg.UploadDir), nil
	case config.AttachmentsS3:
		client, err := NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, errors.Errorf("unknown attachment backend %q", cfg.AttachmentBackend)
	}
}
