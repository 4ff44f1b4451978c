// Package policy filters and rewrites provider items for one session before
// they are merged. Apply is pure: it never mutates its input.
package policy

import (
	"github.com/flitsinc/glanced/internal/content"
	"github.com/flitsinc/glanced/internal/settings"
)

// RedactedTitle replaces the title of sensitive items under hide_contents.
const RedactedTitle = "Content hidden"

// OpenExpandedPrefix prefixes the tap action that opens the expanded view.
const OpenExpandedPrefix = "open_expanded:"

type Options struct {
	Surface  content.Surface
	Settings settings.Snapshot
	// AmbientAudio is true only when audio is playing over the lock surface
	// and the consumer supports showing items over it.
	AmbientAudio bool
	Expanded     bool
	Native       bool
	Package      string
}

type Input struct {
	Targets []content.Item
	Actions []content.Item
	Options Options
	// Configs and Compatibility come from the pool snapshot.
	Configs       map[string]content.SourceConfig
	Compatibility map[string]content.Compatibility
}

// Stats counts the items each stage removed or rewrote.
type Stats struct {
	Invalid      int `json:"invalid"`
	Ineligible   int `json:"ineligible"`
	OpenExpanded int `json:"open_expanded"`
	Redacted     int `json:"redacted"`
	Hidden       int `json:"hidden"`
	Limited      int `json:"limited"`
	Incompatible int `json:"incompatible"`
}

func (s Stats) Dropped() int {
	return s.Invalid + s.Ineligible + s.Hidden + s.Limited + s.Incompatible
}

type Output struct {
	Targets []content.Item
	Actions []content.Item
	Stats   Stats
}

// Apply runs the stages in order: validation, surface eligibility, open-mode
// substitution, sensitivity redaction, developer surface limits, compatibility.
func Apply(in Input) Output {
	var st Stats
	opts := in.Options

	targets := cloneAll(in.Targets)
	actions := cloneAll(in.Actions)

	targets = filter(targets, &st.Invalid, validTarget)
	actions = filter(actions, &st.Invalid, validItem)

	eligible := func(it content.Item) bool { return Eligible(it, opts) }
	targets = filter(targets, &st.Ineligible, eligible)
	actions = filter(actions, &st.Ineligible, eligible)

	if !opts.Expanded {
		mode := EffectiveOpenMode(opts.Surface, opts.Settings)
		for i := range targets {
			if ShouldOpenExpanded(targets[i], mode, opts.Surface, in.Configs[targets[i].SourceID]) {
				openExpanded(&targets[i])
				st.OpenExpanded++
			}
		}
	}

	if opts.Surface == content.SurfaceLock {
		targets = redactAll(targets, opts.Settings.HideSensitive, &st)
		actions = redactAll(actions, opts.Settings.HideSensitive, &st)
	}

	allowed := func(it content.Item) bool { return it.ShowsOn(opts.Surface) }
	targets = filter(targets, &st.Limited, allowed)
	actions = filter(actions, &st.Limited, allowed)

	if opts.Native && opts.Settings.NativeHideIncompatible {
		if report, ok := in.Compatibility[opts.Package]; ok {
			targets = filter(targets, &st.Incompatible, report.Supports)
		}
	}

	return Output{Targets: targets, Actions: actions, Stats: st}
}

func validItem(it content.Item) bool {
	return it.ID != "" && it.SourceID != ""
}

func validTarget(it content.Item) bool {
	if !validItem(it) {
		return false
	}
	if it.IsWeather() && it.Payload.Date == "" && it.Payload.Template == "" {
		return false
	}
	return true
}

// Eligible reports whether the user's visibility flags allow it on the surface.
func Eligible(it content.Item, opts Options) bool {
	v := it.Visibility
	if opts.Expanded {
		switch opts.Surface {
		case content.SurfaceHome:
			return v.ShowOnExpanded
		case content.SurfaceLock:
			return v.ShowOnExpanded && v.ExpandedShowWhenLocked
		default:
			return false
		}
	}
	switch opts.Surface {
	case content.SurfaceHome:
		return v.ShowOnHome
	case content.SurfaceLock:
		if opts.AmbientAudio {
			return v.ShowOverAmbientAudio
		}
		return v.ShowOnLock
	default:
		return false
	}
}

func filter(items []content.Item, dropped *int, keep func(content.Item) bool) []content.Item {
	out := items[:0]
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
			continue
		}
		*dropped++
	}
	return out
}

func cloneAll(items []content.Item) []content.Item {
	out := make([]content.Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
