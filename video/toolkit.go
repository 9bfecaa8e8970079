// Package video wraps the external media tools: yt-dlp for downloads and
// ffmpeg for probing, splitting and clip extraction.
package video

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"shortsmith/config"
	"shortsmith/logger"
	"shortsmith/planner"
	"shortsmith/types"
)

// Toolkit is the production media tool used by the pipeline.
type Toolkit struct {
	Downloader
	FFmpeg string
	GPU    bool
	log    *logger.Logger
}

// NewToolkit builds a Toolkit from settings. GPU encoding is only enabled
// when the local ffmpeg actually ships NVENC.
func NewToolkit(ctx context.Context, s *config.Settings, log *logger.Logger) *Toolkit {
	t := &Toolkit{
		Downloader: Downloader{
			UseCookies:    s.UseCookies,
			CookiesPath:   s.CookiesPath,
			HighResFormat: s.HighResFormat,
		},
		FFmpeg: "ffmpeg",
		log:    log.Named("video"),
	}
	if s.UseGPU {
		t.GPU = NVENCAvailable(ctx, t.FFmpeg)
		if !t.GPU {
			t.log.Warn("USE_GPU is set but h264_nvenc is unavailable, encoding on CPU")
		}
	}
	return t
}

func (t *Toolkit) Duration(ctx context.Context, path string) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return Duration(path)
}

func (t *Toolkit) Split(ctx context.Context, src, dir string, segments []planner.Segment) ([]types.Chunk, error) {
	return Split(ctx, t.FFmpeg, src, dir, segments)
}

func (t *Toolkit) ExtractClip(ctx context.Context, src string, start, end time.Duration, dest string) error {
	return ExtractClip(ctx, t.FFmpeg, src, start, end, dest, t.GPU)
}

// CheckDependencies reports every required binary missing from PATH.
func CheckDependencies(lookPath func(string) (string, error)) error {
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	var missing []string
	for _, tool := range []string{"ffmpeg", "ffprobe", "yt-dlp"} {
		if _, err := lookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required dependencies: %s; install them and make sure they are on PATH", strings.Join(missing, ", "))
	}
	return nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9_]+`)

// ClipName is the file name of the i-th (zero-based) extracted short.
func ClipName(i int, m types.Moment) string {
	category := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(m.Category), " ", "_"))
	category = strings.Trim(nonSlug.ReplaceAllString(category, ""), "_")
	if category == "" {
		category = "other"
	}
	return fmt.Sprintf("short_%d_%s.mp4", i+1, category)
}
