package policy

import (
	"github.com/flitsinc/glanced/internal/content"
	"github.com/flitsinc/glanced/internal/settings"
)

// EffectiveOpenMode picks the per-surface open mode, or never when expanded
// mode is off or the surface has no expanded view.
func EffectiveOpenMode(surface content.Surface, s settings.Snapshot) settings.OpenMode {
	if !s.ExpandedEnabled {
		return settings.OpenModeNever
	}
	switch surface {
	case content.SurfaceHome:
		return s.OpenModeHome
	case content.SurfaceLock:
		return s.OpenModeLock
	default:
		return settings.OpenModeNever
	}
}

func ShouldOpenExpanded(t content.Item, mode settings.OpenMode, surface content.Surface, cfg content.SourceConfig) bool {
	switch {
	case mode == settings.OpenModeNever || mode == "":
		return false
	case mode == settings.OpenModeAlways:
		return true
	case t.Expanded == nil:
		return false
	case !t.Visibility.ShowOnExpanded:
		return false
	case surface == content.SurfaceLock && !t.Visibility.ExpandedShowWhenLocked:
		return false
	default:
		return cfg.PermitsExpanded(t.Expanded)
	}
}

func openExpanded(t *content.Item) {
	action := OpenExpandedPrefix + t.UID()
	t.Payload.TapAction = action
	if t.Header != nil {
		t.Header.TapAction = action
	}
	if t.Base != nil {
		t.Base.TapAction = action
	}
}
