package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	lowResFormat  = "bestvideo[height<=360][ext=mp4]+bestaudio[ext=m4a]/best[height<=360][ext=mp4]/bestvideo[height<=360]+bestaudio/best[height<=360]/best"
	highResFormat = "bestvideo+bestaudio/best"
)

// Downloader fetches sources with yt-dlp.
type Downloader struct {
	Binary      string
	UseCookies  bool
	CookiesPath string
	// HighResFormat overrides the yt-dlp format selector for extraction copies.
	HighResFormat string
}

// DownloadLowRes fetches an analysis copy capped at 360p.
func (d *Downloader) DownloadLowRes(ctx context.Context, url, dest string) error {
	return d.download(ctx, url, dest, lowResFormat)
}

// DownloadHighRes fetches the best available copy, or HighResFormat when set.
func (d *Downloader) DownloadHighRes(ctx context.Context, url, dest string) error {
	format := highResFormat
	if d.HighResFormat != "" {
		format = d.HighResFormat
	}
	return d.download(ctx, url, dest, format)
}

func (d *Downloader) download(ctx context.Context, url, dest, format string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating download directory: %w", err)
	}

	out, err := run(ctx, d.binary(), d.args(url, dest, format)...)
	if err != nil {
		return fmt.Errorf("yt-dlp failed: %w: %s", err, lastLine(out))
	}
	if _, err := os.Stat(dest); err != nil {
		return fmt.Errorf("video download failed - file not created: %s", dest)
	}
	return nil
}

func (d *Downloader) args(url, dest, format string) []string {
	args := []string{
		"-f", format,
		"--merge-output-format", "mp4",
		"--no-warnings",
		"--no-cache-dir",
		"--retries", "10",
		"--fragment-retries", "10",
		"--newline",
		"--force-overwrites",
		"--no-part",
		"--no-continue",
	}
	if d.UseCookies && d.CookiesPath != "" {
		args = append(args, "--cookies", d.CookiesPath)
	}
	return append(args, "-o", dest, url)
}

func (d *Downloader) binary() string {
	if d.Binary == "" {
		return "yt-dlp"
	}
	return d.Binary
}

// ValidYouTubeURL accepts watch and short-link URLs.
func ValidYouTubeURL(url string) bool {
	return strings.Contains(url, "youtube.com/watch") ||
		strings.Contains(url, "youtu.be/") ||
		strings.Contains(url, "youtube.com/shorts/") ||
		strings.Contains(url, "youtube.com/live/")
}
