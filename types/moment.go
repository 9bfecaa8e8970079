package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"shortsmith/timecode"
)

// Moment is a stretch of the source video worth cutting into a short
type Moment struct {
	StartTime   string         `json:"start_time"`
	EndTime     string         `json:"end_time"`
	Category    string         `json:"category"`
	Description string         `json:"description"`
	Dialogue    []DialogueLine `json:"dialogue,omitempty"`
}

// DialogueLine is a memorable phrase spoken inside a moment
type DialogueLine struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Phrase    string `json:"phrase"`
}

// Chunk is one split file of the analysis copy
type Chunk struct {
	Index  int           `json:"index"`
	Start  time.Duration `json:"start"`
	Length time.Duration `json:"length"`
	Path   string        `json:"path"`
}

// Rebase moves every stamp of m (dialogue included) forward by offset and
// normalizes it to "HH:MM:SS". It fails when the start or end stamp does not
// parse. Dialogue lines with unreadable stamps are dropped.
func (m Moment) Rebase(offset time.Duration) (Moment, error) {
	out := m
	var err error
	if out.StartTime, err = timecode.Shift(m.StartTime, offset); err != nil {
		return m, fmt.Errorf("start: %w", err)
	}
	if out.EndTime, err = timecode.Shift(m.EndTime, offset); err != nil {
		return m, fmt.Errorf("end: %w", err)
	}

	out.Dialogue = nil
	for _, d := range m.Dialogue {
		start, err := timecode.Shift(d.StartTime, offset)
		if err != nil {
			continue
		}
		end, err := timecode.Shift(d.EndTime, offset)
		if err != nil {
			continue
		}
		d.StartTime, d.EndTime = start, end
		out.Dialogue = append(out.Dialogue, d)
	}
	return out, nil
}

// RebaseAll rebases a chunk's worth of moments. Moments that cannot be
// rebased are left out and counted in dropped.
func RebaseAll(moments []Moment, offset time.Duration) (out []Moment, dropped int) {
	out = make([]Moment, 0, len(moments))
	for _, m := range moments {
		r, err := m.Rebase(offset)
		if err != nil {
			dropped++
			continue
		}
		out = append(out, r)
	}
	return out, dropped
}

// Length is the clip length, or zero when either stamp is unreadable.
func (m Moment) Length() time.Duration {
	start, err := timecode.Parse(m.StartTime)
	if err != nil {
		return 0
	}
	end, err := timecode.Parse(m.EndTime)
	if err != nil || end < start {
		return 0
	}
	return end - start
}

// SessionID creates a short stable ID from a source URL
func SessionID(sourceURL string) string {
	hash := sha256.Sum256([]byte(sourceURL))
	return hex.EncodeToString(hash[:])[:16]
}
