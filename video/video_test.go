package video

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"shortsmith/planner"
	"shortsmith/types"
)

// hasPair reports whether flag is immediately followed by value.
func hasPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func contains(args []string, s string) bool {
	for _, a := range args {
		if a == s {
			return true
		}
	}
	return false
}

func TestSplitArgs(t *testing.T) {
	seg := planner.Segment{Start: 30 * time.Minute, Length: 1400 * time.Second}
	args := splitArgs("low_res.mp4", "chunks/chunk_1.mp4", seg)

	for _, p := range [][2]string{
		{"-i", "low_res.mp4"},
		{"-ss", "00:30:00"},
		{"-t", "1400"},
		{"-c", "copy"},
	} {
		if !hasPair(args, p[0], p[1]) {
			t.Fatalf("args %v missing %s %s", args, p[0], p[1])
		}
	}
	if !contains(args, "chunks/chunk_1.mp4") || !contains(args, "-y") {
		t.Fatalf("args %v missing output or overwrite", args)
	}
}

func TestClipArgs(t *testing.T) {
	cases := []struct {
		name  string
		gpu   bool
		codec string
		extra [2]string
	}{
		{"cpu", false, "libx264", [2]string{"-crf", "23"}},
		{"gpu", true, "h264_nvenc", [2]string{"-cq", "23"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			args := clipArgs("high_res.mp4", 65*time.Second, 95*time.Second, "short_1_funny.mp4", c.gpu)
			if !hasPair(args, "-ss", "00:01:05") || !hasPair(args, "-to", "00:01:35") {
				t.Fatalf("args %v missing range", args)
			}
			if !hasPair(args, "-c:v", c.codec) || !hasPair(args, c.extra[0], c.extra[1]) {
				t.Fatalf("args %v missing encoder settings", args)
			}
			if !hasPair(args, "-c:a", "aac") {
				t.Fatalf("args %v missing audio codec", args)
			}
		})
	}
}

func TestParseProbe(t *testing.T) {
	d, err := parseProbe(`{"streams":[],"format":{"filename":"x.mp4","duration":"5000.480000"}}`)
	if err != nil {
		t.Fatalf("parseProbe error: %v", err)
	}
	if d != 5000*time.Second {
		t.Fatalf("duration = %v; want 5000s", d)
	}

	for _, bad := range []string{`not json`, `{"format":{}}`, `{"format":{"duration":"N/A"}}`} {
		if _, err := parseProbe(bad); err == nil {
			t.Fatalf("parseProbe(%q) expected error", bad)
		}
	}
}

func TestDownloaderArgs(t *testing.T) {
	d := &Downloader{UseCookies: true, CookiesPath: "cookies.txt"}
	args := d.args("https://youtu.be/x", "out/low_res.mp4", lowResFormat)

	if !hasPair(args, "-f", lowResFormat) || !hasPair(args, "--cookies", "cookies.txt") {
		t.Fatalf("args = %v", args)
	}
	if !hasPair(args, "-o", "out/low_res.mp4") || args[len(args)-1] != "https://youtu.be/x" {
		t.Fatalf("output or url misplaced: %v", args)
	}

	plain := (&Downloader{CookiesPath: "cookies.txt"}).args("u", "d", highResFormat)
	if contains(plain, "--cookies") {
		t.Fatalf("cookies passed while disabled: %v", plain)
	}
}

func TestLowResFormatCapsHeight(t *testing.T) {
	if !strings.Contains(lowResFormat, "height<=360") {
		t.Fatalf("low-res format does not cap height: %s", lowResFormat)
	}
}

func TestSplitReusesExistingChunks(t *testing.T) {
	dir := t.TempDir()
	segs := planner.Plan(5400 * time.Second)
	for i := range segs {
		if err := os.WriteFile(ChunkPath(dir, i), []byte("cached"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	// ffmpeg is never invoked for cached chunks, so a bogus binary is fine
	chunks, err := Split(t.Context(), filepath.Join(dir, "no-such-ffmpeg"), "src.mp4", dir, segs)
	if err != nil {
		t.Fatalf("Split error: %v", err)
	}
	if len(chunks) != 3 || chunks[2].Start != time.Hour || chunks[2].Path != ChunkPath(dir, 2) {
		t.Fatalf("chunks = %+v", chunks)
	}
}

// fakeFFmpeg writes a script that stands in for ffmpeg: it writes to the
// last .mp4 argument and exits with code.
func fakeFFmpeg(t *testing.T, code int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	bin := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\nout=\nfor a in \"$@\"; do case \"$a\" in *.mp4) out=\"$a\";; esac; done\n" +
		"printf partial > \"$out\"\nexit " + strconv.Itoa(code) + "\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return bin
}

func TestSplitFailureLeavesNoChunk(t *testing.T) {
	dir := t.TempDir()
	segs := planner.Plan(time.Hour)

	if _, err := Split(t.Context(), fakeFFmpeg(t, 1), "src.mp4", dir, segs); err == nil {
		t.Fatalf("Split succeeded with a failing ffmpeg")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("failed split left %v behind", entries)
	}
}

func TestSplitRenamesFinishedChunks(t *testing.T) {
	dir := t.TempDir()
	segs := planner.Plan(time.Hour)

	chunks, err := Split(t.Context(), fakeFFmpeg(t, 0), "src.mp4", dir, segs)
	if err != nil {
		t.Fatalf("Split error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("chunks = %+v", chunks)
	}
	for i, c := range chunks {
		if data, err := os.ReadFile(c.Path); err != nil || string(data) != "partial" {
			t.Fatalf("chunk %d = %q, %v", i, data, err)
		}
	}
	if matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp.mp4")); len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}

func TestClipName(t *testing.T) {
	cases := []struct {
		i    int
		cat  string
		want string
	}{
		{0, "Funny", "short_1_funny.mp4"},
		{4, "Incredible Play", "short_5_incredible_play.mp4"},
		{1, "", "short_2_other.mp4"},
		{2, "Wow!/..", "short_3_wow.mp4"},
	}
	for _, c := range cases {
		if got := ClipName(c.i, types.Moment{Category: c.cat}); got != c.want {
			t.Fatalf("ClipName(%d, %q) = %q; want %q", c.i, c.cat, got, c.want)
		}
	}
}

func TestCheckDependencies(t *testing.T) {
	all := func(string) (string, error) { return "/usr/bin/x", nil }
	if err := CheckDependencies(all); err != nil {
		t.Fatalf("CheckDependencies = %v", err)
	}

	noYtdlp := func(name string) (string, error) {
		if name == "yt-dlp" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}
	err := CheckDependencies(noYtdlp)
	if err == nil || !strings.Contains(err.Error(), "yt-dlp") || strings.Contains(err.Error(), "ffmpeg,") {
		t.Fatalf("CheckDependencies = %v", err)
	}
}

func TestValidYouTubeURL(t *testing.T) {
	for url, want := range map[string]bool{
		"https://www.youtube.com/watch?v=abc": true,
		"https://youtu.be/abc":                true,
		"https://example.com/video.mp4":       false,
	} {
		if got := ValidYouTubeURL(url); got != want {
			t.Fatalf("ValidYouTubeURL(%q) = %v", url, got)
		}
	}
}
