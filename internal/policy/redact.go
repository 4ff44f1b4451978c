package policy

import (
	"github.com/flitsinc/glanced/internal/content"
	"github.com/flitsinc/glanced/internal/settings"
)

func redactAll(items []content.Item, mode settings.HideSensitive, st *Stats) []content.Item {
	out := items[:0]
	for _, it := range items {
		if !it.Sensitive {
			out = append(out, it)
			continue
		}
		switch mode {
		case settings.HideSensitiveTarget:
			st.Hidden++
			continue
		case settings.HideSensitiveContents:
			it = Redact(it)
			if !displayable(it) {
				st.Hidden++
				continue
			}
			st.Redacted++
		}
		out = append(out, it)
	}
	return out
}

// Redact strips the descriptive payload of a sensitive item. Subtitle and icon
// survive, and weather items keep their date.
func Redact(it content.Item) content.Item {
	it = it.Clone()
	it.Payload.Title = RedactedTitle
	it.Payload.Description = ""
	it.Payload.Extras = nil
	if !it.IsWeather() {
		it.Payload.Date = ""
		it.Feature = content.FeatureUndefined
	}
	if it.Header != nil && it.Header.Title != "" {
		it.Header.Title = RedactedTitle
	}
	return it
}

func displayable(it content.Item) bool {
	if it.Payload.Subtitle != "" || it.Payload.Icon != "" || it.Payload.Date != "" {
		return true
	}
	return it.Header != nil && it.Header.Subtitle != ""
}
