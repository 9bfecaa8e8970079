package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"shortsmith/config"
	"shortsmith/logger"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveUploader copies shorts into a Google Drive folder.
type DriveUploader struct {
	service  *drive.Service
	folderID string
	log      *logger.Logger
}

func NewDriveUploader(ctx context.Context, serviceAccountFile, folderID string, log *logger.Logger) (*DriveUploader, error) {
	data, err := os.ReadFile(serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read service account file: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(data, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account: %w", err)
	}

	service, err := drive.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %w", err)
	}

	return &DriveUploader{service: service, folderID: folderID, log: log.Named("drive")}, nil
}

func (d *DriveUploader) Publish(ctx context.Context, clipPath string, meta Metadata) (string, error) {
	file, err := os.Open(clipPath)
	if err != nil {
		return "", fmt.Errorf("failed to open clip: %w", err)
	}
	defer file.Close()

	entry := &drive.File{
		Name:        filepath.Base(clipPath),
		Description: meta.Title,
		MimeType:    config.ChunkMIMEType,
	}
	if d.folderID != "" {
		entry.Parents = []string{d.folderID}
	}

	created, err := d.service.Files.Create(entry).
		Media(file).
		Fields("id", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload to drive: %w", err)
	}

	d.log.Infof("uploaded %s to drive as %s", entry.Name, created.Id)
	if created.WebViewLink != "" {
		return created.WebViewLink, nil
	}
	return "https://drive.google.com/file/d/" + created.Id + "/view", nil
}
