package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"shortsmith/common"
	"shortsmith/config"
	"shortsmith/logger"

	"github.com/cenkalti/backoff/v4"
)

// objectStore is the part of common.S3 the publisher uses.
type objectStore interface {
	Exists(ctx context.Context, bucket, key string) (bool, error)
	Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
}

// S3Publisher archives shorts under <prefix><shorts dir>/<clip>.
type S3Publisher struct {
	store      objectStore
	bucket     string
	prefix     string
	newBackOff func() backoff.BackOff
	log        *logger.Logger
}

func NewS3Publisher(client *common.S3, bucket, prefix string, log *logger.Logger) *S3Publisher {
	return &S3Publisher{
		store:  client,
		bucket: bucket,
		prefix: prefix,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			return backoff.WithMaxRetries(b, 3)
		},
		log: log.Named("s3"),
	}
}

// Key is the object key for clipPath.
func (p *S3Publisher) Key(clipPath string) string {
	return p.prefix + path.Join(filepath.Base(filepath.Dir(clipPath)), filepath.Base(clipPath))
}

func (p *S3Publisher) Publish(ctx context.Context, clipPath string, _ Metadata) (string, error) {
	key := p.Key(clipPath)
	link := fmt.Sprintf("s3://%s/%s", p.bucket, key)

	exists, err := p.store.Exists(ctx, p.bucket, key)
	if err != nil {
		p.log.WithError(err).Warnf("could not check %s, uploading anyway", link)
	}
	if exists {
		p.log.Infof("%s already archived", link)
		return link, nil
	}

	upload := func() error {
		f, err := os.Open(clipPath)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to open clip: %w", err))
		}
		defer f.Close()
		return p.store.Put(ctx, p.bucket, key, f, config.ChunkMIMEType)
	}
	notify := func(err error, wait time.Duration) {
		p.log.WithError(err).Warnf("upload of %s failed, retrying in %s", key, wait)
	}

	if err := backoff.RetryNotify(upload, backoff.WithContext(p.newBackOff(), ctx), notify); err != nil {
		return "", fmt.Errorf("s3 upload %s: %w", key, err)
	}
	return link, nil
}
