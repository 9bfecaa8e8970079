package publish

import (
	"context"
	"fmt"

	"shortsmith/common"
	"shortsmith/config"
	"shortsmith/logger"
)

// FromSettings builds every destination that is configured. It returns nil
// when publishing is not set up at all.
func FromSettings(ctx context.Context, s *config.Settings, log *logger.Logger) (Publisher, error) {
	var pubs Multi

	if s.YouTubeServiceAccount != "" {
		yt, err := NewYouTubeUploader(ctx, s.YouTubeServiceAccount, log)
		if err != nil {
			return nil, fmt.Errorf("youtube: %w", err)
		}
		pubs = append(pubs, yt)
	}

	if s.DriveServiceAccount != "" {
		dr, err := NewDriveUploader(ctx, s.DriveServiceAccount, s.DriveFolderID, log)
		if err != nil {
			return nil, fmt.Errorf("drive: %w", err)
		}
		pubs = append(pubs, dr)
	}

	if s.S3Bucket != "" {
		client, err := common.NewS3(ctx, common.S3Config{
			Region:       s.S3Region,
			Profile:      s.S3Profile,
			UsePathStyle: s.S3UsePathStyle,
			Endpoint:     s.S3Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("s3: %w", err)
		}
		pubs = append(pubs, NewS3Publisher(client, s.S3Bucket, s.S3Prefix, log))
	}

	switch len(pubs) {
	case 0:
		return nil, nil
	case 1:
		return pubs[0], nil
	}
	return pubs, nil
}
