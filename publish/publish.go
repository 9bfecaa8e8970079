// Package publish hands finished shorts to external destinations.
package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"shortsmith/config"
	"shortsmith/types"
)

// Metadata describes one uploaded short.
type Metadata struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
}

// Publisher uploads a clip and returns where it ended up.
type Publisher interface {
	Publish(ctx context.Context, clipPath string, meta Metadata) (string, error)
}

// Multi publishes to every destination and keeps going past failures.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, clipPath string, meta Metadata) (string, error) {
	var links []string
	var errs []error
	for _, p := range m {
		link, err := p.Publish(ctx, clipPath, meta)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		links = append(links, link)
	}
	return strings.Join(links, " "), errors.Join(errs...)
}

// GenerateMetadata builds upload metadata for the index-th (one-based) moment.
func GenerateMetadata(m types.Moment, index int) Metadata {
	category := strings.TrimSpace(m.Category)
	if category == "" {
		category = "Other"
	}

	title := fmt.Sprintf("%s #%d | %s", category, index, strings.TrimSpace(m.Description))
	title = strings.TrimSuffix(strings.TrimSpace(title), "|")
	title = truncate(strings.TrimSpace(title), config.MaxTitleLength)

	description := fmt.Sprintf(
		"%s\n\n"+
			"⏱ %s - %s\n\n"+
			"#shorts #gaming #%s",
		m.Description,
		m.StartTime, m.EndTime,
		strings.ToLower(strings.ReplaceAll(category, " ", "")),
	)

	tags := []string{
		"shorts",
		"gaming",
		"highlights",
		strings.ToLower(category),
	}

	return Metadata{
		Title:       title,
		Description: description,
		Tags:        tags,
		CategoryID:  config.YouTubeCategoryID,
	}
}

// truncate caps s at max runes, ending in "..." when cut.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-3]) + "..."
}
