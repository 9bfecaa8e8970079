package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"shortsmith/planner"
	"shortsmith/timecode"
	"shortsmith/types"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// probeResult is the part of ffprobe's JSON we read.
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration probes the container length of path.
func Duration(path string) (time.Duration, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("probing %s: %w", filepath.Base(path), err)
	}
	return parseProbe(out)
}

func parseProbe(out string) (time.Duration, error) {
	var probe probeResult
	if err := json.Unmarshal([]byte(out), &probe); err != nil {
		return 0, fmt.Errorf("decoding probe output: %w", err)
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(probe.Format.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing duration %q: %w", probe.Format.Duration, err)
	}
	if secs < 0 {
		return 0, fmt.Errorf("negative duration %v", secs)
	}
	return timecode.FromSeconds(secs), nil
}

// ChunkPath is where segment i of a split lands.
func ChunkPath(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("chunk_%d.mp4", i))
}

func splitArgs(src, dest string, seg planner.Segment) []string {
	return ffmpeg.Input(src).
		Output(dest, ffmpeg.KwArgs{
			"ss": timecode.Format(seg.Start),
			"t":  strconv.FormatInt(int64(seg.Length/time.Second), 10),
			"c":  "copy",
		}).
		OverWriteOutput().
		GetArgs()
}

func clipArgs(src string, start, end time.Duration, dest string, gpu bool) []string {
	kw := ffmpeg.KwArgs{
		"ss":     timecode.Format(start),
		"to":     timecode.Format(end),
		"c:a":    "aac",
		"strict": "experimental",
	}
	if gpu {
		kw["c:v"] = "h264_nvenc"
		kw["preset"] = "p4"
		kw["rc"] = "vbr"
		kw["cq"] = "23"
		kw["b:v"] = "0"
	} else {
		kw["c:v"] = "libx264"
		kw["preset"] = "medium"
		kw["crf"] = "23"
	}
	return ffmpeg.Input(src).Output(dest, kw).OverWriteOutput().GetArgs()
}

// Split stream-copies each segment of src into dir. A chunk file that is
// already on disk is reused.
func Split(ctx context.Context, bin, src, dir string, segments []planner.Segment) ([]types.Chunk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating chunk directory: %w", err)
	}

	chunks := make([]types.Chunk, 0, len(segments))
	for i, seg := range segments {
		path := ChunkPath(dir, i)
		chunk := types.Chunk{Index: i, Start: seg.Start, Length: seg.Length, Path: path}

		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			chunks = append(chunks, chunk)
			continue
		}

		// a chunk only appears under its final name once ffmpeg has finished it
		tmp := strings.TrimSuffix(path, ".mp4") + ".tmp.mp4"
		if out, err := run(ctx, bin, splitArgs(src, tmp, seg)...); err != nil {
			os.Remove(tmp)
			return nil, fmt.Errorf("ffmpeg failed to split chunk %d: %w: %s", i, err, lastLine(out))
		}
		if err := os.Rename(tmp, path); err != nil {
			os.Remove(tmp)
			return nil, fmt.Errorf("finalizing chunk %d: %w", i, err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// ExtractClip re-encodes [start, end) of src into dest.
func ExtractClip(ctx context.Context, bin, src string, start, end time.Duration, dest string, gpu bool) error {
	if end <= start {
		return fmt.Errorf("clip end %s is not after start %s", timecode.Format(end), timecode.Format(start))
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating clip directory: %w", err)
	}
	if out, err := run(ctx, bin, clipArgs(src, start, end, dest, gpu)...); err != nil {
		return fmt.Errorf("ffmpeg failed to extract clip: %w: %s", err, lastLine(out))
	}
	return nil
}

// NVENCAvailable reports whether the local ffmpeg has the NVIDIA encoder.
func NVENCAvailable(ctx context.Context, bin string) bool {
	out, err := run(ctx, bin, "-hide_banner", "-encoders")
	return err == nil && strings.Contains(out, "h264_nvenc")
}

// run executes an external binary and captures combined output.
func run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var output strings.Builder
	cmd.Stdout = &output
	cmd.Stderr = &output
	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		err = errors.Join(ctxErr, err)
	}
	return output.String(), err
}

func lastLine(out string) string {
	out = strings.TrimSpace(out)
	if i := strings.LastIndexByte(out, '\n'); i >= 0 {
		return out[i+1:]
	}
	return out
}
