package publish

import (
	"context"
	"fmt"
	"os"

	"shortsmith/config"
	"shortsmith/logger"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubeUploader posts shorts with a service account.
type YouTubeUploader struct {
	service *youtube.Service
	log     *logger.Logger
}

func NewYouTubeUploader(ctx context.Context, serviceAccountFile string, log *logger.Logger) (*YouTubeUploader, error) {
	data, err := os.ReadFile(serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read service account file: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(data, youtube.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account: %w", err)
	}

	service, err := youtube.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create YouTube service: %w", err)
	}

	return &YouTubeUploader{service: service, log: log.Named("youtube")}, nil
}

func (u *YouTubeUploader) Publish(ctx context.Context, clipPath string, meta Metadata) (string, error) {
	file, err := os.Open(clipPath)
	if err != nil {
		return "", fmt.Errorf("failed to open clip: %w", err)
	}
	defer file.Close()

	if info, err := file.Stat(); err == nil {
		u.log.Infof("uploading %s (%.2f MB)", clipPath, float64(info.Size())/(1024*1024))
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  meta.CategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           config.YouTubePrivacyStatus,
			SelfDeclaredMadeForKids: false,
		},
	}

	response, err := u.service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(file).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload video: %w", err)
	}

	link := "https://youtube.com/shorts/" + response.Id
	u.log.Infof("uploaded %s", link)
	return link, nil
}
