package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"shortsmith/timecode"
	"shortsmith/types"
)

// StripFence removes a markdown code fence around a model answer.
func StripFence(text string) string {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// stamp accepts anything timecode.Parse reads, a bare number of seconds, or
// a numeric string, and normalizes it to "HH:MM:SS". Anything else is kept
// verbatim so the caller can drop it.
type stamp string

func (s *stamp) UnmarshalJSON(b []byte) error {
	var secs float64
	if err := json.Unmarshal(b, &secs); err == nil {
		*s = stamp(timecode.Format(timecode.FromSeconds(secs)))
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("timestamp must be a string or number, got %s", string(b))
	}
	str = strings.TrimSpace(str)
	if secs, err := strconv.ParseFloat(str, 64); err == nil {
		str = timecode.Format(timecode.FromSeconds(secs))
	} else if d, err := timecode.Parse(str); err == nil {
		str = timecode.Format(d)
	}
	*s = stamp(str)
	return nil
}

type rawDialogue struct {
	StartTime stamp  `json:"start_time"`
	EndTime   stamp  `json:"end_time"`
	Phrase    string `json:"phrase"`
}

type rawMoment struct {
	StartTime   stamp         `json:"start_time"`
	EndTime     stamp         `json:"end_time"`
	Category    string        `json:"category"`
	Description string        `json:"description"`
	Dialogue    []rawDialogue `json:"dialogue"`
}

type analysisResponse struct {
	Moments []rawMoment `json:"moments"`
}

var errEmptyResponse = errors.New("empty analysis response")

// ParseMoments decodes a model answer into chunk-relative moments. It
// accepts {"moments": [...]} or a bare array, fenced or not, and falls back
// to the outermost JSON value embedded in surrounding prose.
func ParseMoments(text string) ([]types.Moment, error) {
	body := StripFence(text)
	if body == "" {
		return nil, errEmptyResponse
	}

	raw, err := decodeMoments(body)
	if err != nil {
		embedded := extractJSON(body)
		if embedded == "" || embedded == body {
			return nil, fmt.Errorf("decoding moments: %w", err)
		}
		if raw, err = decodeMoments(embedded); err != nil {
			return nil, fmt.Errorf("decoding moments: %w", err)
		}
	}

	moments := make([]types.Moment, 0, len(raw))
	for _, r := range raw {
		m := types.Moment{
			StartTime:   string(r.StartTime),
			EndTime:     string(r.EndTime),
			Category:    strings.TrimSpace(r.Category),
			Description: strings.TrimSpace(r.Description),
		}
		for _, d := range r.Dialogue {
			m.Dialogue = append(m.Dialogue, types.DialogueLine{
				StartTime: string(d.StartTime),
				EndTime:   string(d.EndTime),
				Phrase:    d.Phrase,
			})
		}
		moments = append(moments, m)
	}
	return moments, nil
}

func decodeMoments(body string) ([]rawMoment, error) {
	if strings.HasPrefix(body, "[") {
		var list []rawMoment
		if err := json.Unmarshal([]byte(body), &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var resp analysisResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, err
	}
	return resp.Moments, nil
}

// extractJSON returns the outermost object or array in text, whichever opens first.
func extractJSON(text string) string {
	opener, closer := "{", "}"
	obj := strings.Index(text, "{")
	arr := strings.Index(text, "[")
	if arr >= 0 && (obj < 0 || arr < obj) {
		opener, closer = "[", "]"
	}

	start := strings.Index(text, opener)
	end := strings.LastIndex(text, closer)
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
