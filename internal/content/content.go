package content

import (
	"fmt"
	"strings"
)

type Surface string

const (
	SurfaceHome  Surface = "home"
	SurfaceLock  Surface = "lock"
	SurfaceMedia Surface = "media"
	SurfaceHub   Surface = "hub"
)

// ParseSurface validates a raw surface name.
func ParseSurface(raw string) (Surface, error) {
	switch Surface(strings.ToLower(strings.TrimSpace(raw))) {
	case SurfaceHome:
		return SurfaceHome, nil
	case SurfaceLock:
		return SurfaceLock, nil
	case SurfaceMedia:
		return SurfaceMedia, nil
	case SurfaceHub:
		return SurfaceHub, nil
	default:
		return "", fmt.Errorf("unknown surface %q", raw)
	}
}

type Kind string

const (
	KindTarget Kind = "target"
	KindAction Kind = "action"
)

type Feature string

const (
	FeatureUndefined Feature = "undefined"
	FeatureWeather   Feature = "weather"
	FeatureCalendar  Feature = "calendar"
	FeatureDoorbell  Feature = "doorbell"
	FeatureMedia     Feature = "media"
	FeatureCommute   Feature = "commute"
	FeatureFlight    Feature = "flight"
	FeaturePackage   Feature = "package"
	FeatureAlarm     Feature = "alarm"
	FeatureReminder  Feature = "reminder"
)

type Visibility struct {
	ShowOnHome             bool `json:"show_on_home" yaml:"show_on_home"`
	ShowOnLock             bool `json:"show_on_lock" yaml:"show_on_lock"`
	ShowOnExpanded         bool `json:"show_on_expanded" yaml:"show_on_expanded"`
	ShowOverAmbientAudio   bool `json:"show_over_ambient_audio" yaml:"show_over_ambient_audio"`
	ExpandedShowWhenLocked bool `json:"expanded_show_when_locked" yaml:"expanded_show_when_locked"`
}

type Payload struct {
	Title       string            `json:"title,omitempty" yaml:"title,omitempty"`
	Subtitle    string            `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Icon        string            `json:"icon,omitempty" yaml:"icon,omitempty"`
	Date        string            `json:"date,omitempty" yaml:"date,omitempty"`
	Template    string            `json:"template,omitempty" yaml:"template,omitempty"`
	TapAction   string            `json:"tap_action,omitempty" yaml:"tap_action,omitempty"`
	Extras      map[string]string `json:"extras,omitempty" yaml:"extras,omitempty"`
}

// Expanded references the richer content a target can show in the expanded view.
type Expanded struct {
	Widget       string   `json:"widget,omitempty" yaml:"widget,omitempty"`
	Shortcuts    []string `json:"shortcuts,omitempty" yaml:"shortcuts,omitempty"`
	AppShortcuts []string `json:"app_shortcuts,omitempty" yaml:"app_shortcuts,omitempty"`
	RemoteViews  string   `json:"remote_views,omitempty" yaml:"remote_views,omitempty"`
}

// Slot is one of the two action positions a target exposes.
type Slot struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
	Subtitle  string `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Icon      string `json:"icon,omitempty" yaml:"icon,omitempty"`
	TapAction string `json:"tap_action,omitempty" yaml:"tap_action,omitempty"`
}

func (s *Slot) Empty() bool {
	return s == nil || (s.ID == "" && s.Subtitle == "")
}

type Item struct {
	ID            string     `json:"id" yaml:"id"`
	SourceID      string     `json:"source_id" yaml:"source_id"`
	Kind          Kind       `json:"kind" yaml:"kind"`
	Feature       Feature    `json:"feature,omitempty" yaml:"feature,omitempty"`
	Visibility    Visibility `json:"visibility" yaml:"visibility"`
	Sensitive     bool       `json:"sensitive,omitempty" yaml:"sensitive,omitempty"`
	LimitSurfaces []Surface  `json:"limit_surfaces,omitempty" yaml:"limit_surfaces,omitempty"`
	Payload       Payload    `json:"payload" yaml:"payload"`

	Expanded          *Expanded `json:"expanded,omitempty" yaml:"expanded,omitempty"`
	Header            *Slot     `json:"header,omitempty" yaml:"header,omitempty"`
	Base              *Slot     `json:"base,omitempty" yaml:"base,omitempty"`
	CanTakeTwoActions bool      `json:"can_take_two_actions,omitempty" yaml:"can_take_two_actions,omitempty"`
}

// UID combines source and item id, unique across providers.
func UID(sourceID, id string) string {
	return sourceID + ":" + id
}

func (it Item) UID() string {
	return UID(it.SourceID, it.ID)
}

// SplitUID reverses UID. ok is false when uid carries no source prefix.
func SplitUID(uid string) (sourceID, id string, ok bool) {
	return strings.Cut(uid, ":")
}

func (it Item) FeatureOrUndefined() Feature {
	if it.Feature == "" {
		return FeatureUndefined
	}
	return it.Feature
}

func (it Item) IsWeather() bool {
	return it.Feature == FeatureWeather
}

// ShowsOn reports whether the developer allowed the item on surface.
func (it Item) ShowsOn(surface Surface) bool {
	if len(it.LimitSurfaces) == 0 {
		return true
	}
	for _, s := range it.LimitSurfaces {
		if s == surface {
			return true
		}
	}
	return false
}

// Clone deep-copies the mutable parts so policy stages never alias provider data.
func (it Item) Clone() Item {
	out := it
	if it.LimitSurfaces != nil {
		out.LimitSurfaces = append([]Surface(nil), it.LimitSurfaces...)
	}
	if it.Payload.Extras != nil {
		out.Payload.Extras = make(map[string]string, len(it.Payload.Extras))
		for k, v := range it.Payload.Extras {
			out.Payload.Extras[k] = v
		}
	}
	if it.Expanded != nil {
		exp := *it.Expanded
		exp.Shortcuts = append([]string(nil), it.Expanded.Shortcuts...)
		exp.AppShortcuts = append([]string(nil), it.Expanded.AppShortcuts...)
		out.Expanded = &exp
	}
	if it.Header != nil {
		h := *it.Header
		out.Header = &h
	}
	if it.Base != nil {
		b := *it.Base
		out.Base = &b
	}
	return out
}
