package content

import (
	"encoding/json"
	"fmt"
	"time"
)

// SourceConfig is the effective configuration a provider declares for its items.
type SourceConfig struct {
	ShowWidget          bool     `json:"show_widget,omitempty" yaml:"show_widget,omitempty"`
	ShowShortcuts       bool     `json:"show_shortcuts,omitempty" yaml:"show_shortcuts,omitempty"`
	ShowAppShortcuts    bool     `json:"show_app_shortcuts,omitempty" yaml:"show_app_shortcuts,omitempty"`
	ShowRemoteViews     bool     `json:"show_remote_views,omitempty" yaml:"show_remote_views,omitempty"`
	RefreshPeriod       Duration `json:"refresh_period,omitempty" yaml:"refresh_period,omitempty"`
	RefreshIfNotVisible bool     `json:"refresh_if_not_visible,omitempty" yaml:"refresh_if_not_visible,omitempty"`
}

// PermitsExpanded reports whether any component of exp may be shown under c.
func (c SourceConfig) PermitsExpanded(exp *Expanded) bool {
	if exp == nil {
		return false
	}
	return (c.ShowWidget && exp.Widget != "") ||
		(c.ShowShortcuts && len(exp.Shortcuts) > 0) ||
		(c.ShowAppShortcuts && len(exp.AppShortcuts) > 0) ||
		(c.ShowRemoteViews && exp.RemoteViews != "")
}

// Duration marshals as a Go duration string ("15m").
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string or seconds: %w", err)
	}
	return d.UnmarshalText([]byte(s))
}

// Compatibility maps a template name, or a feature when the item has no
// template, to whether a renderer supports it. Missing keys are compatible.
type Compatibility map[string]bool

func (c Compatibility) Supports(it Item) bool {
	if c == nil {
		return true
	}
	key := it.Payload.Template
	if key == "" {
		key = string(it.FeatureOrUndefined())
	}
	ok, found := c[key]
	return !found || ok
}
