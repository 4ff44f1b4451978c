package session

import (
	"errors"
	"fmt"

	"github.com/flitsinc/glanced/internal/content"
	"github.com/flitsinc/glanced/internal/settings"
)

var ErrInvalidConfig = errors.New("invalid session config")

// Unlimited as a Count keeps every page.
const Unlimited = 0

type Kind string

const (
	KindClient      Kind = "client"
	KindPagedWidget Kind = "paged_widget"
	KindListWidget  Kind = "list_widget"
	KindNative      Kind = "native"
	KindOEM         Kind = "oem"
	KindHub         Kind = "hub"
	KindExpanded    Kind = "expanded"
)

func ParseKind(raw string) (Kind, error) {
	switch k := Kind(raw); k {
	case KindClient, KindPagedWidget, KindListWidget, KindNative, KindOEM, KindHub, KindExpanded:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidConfig, raw)
}

// Config is an immutable per-session policy snapshot. Settings changes
// produce a new Config through WithSettings.
type Config struct {
	Surface      content.Surface   `json:"surface"`
	Count        int               `json:"count"`
	Kind         Kind              `json:"kind"`
	Package      string            `json:"package,omitempty"`
	SplitCapable bool              `json:"split_capable"`
	Settings     settings.Snapshot `json:"settings"`
}

// NewConfig validates c. Invalid combinations are programming errors and
// wrap ErrInvalidConfig.
func NewConfig(c Config) (Config, error) {
	surface, err := content.ParseSurface(string(c.Surface))
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	c.Surface = surface
	kind, err := ParseKind(string(c.Kind))
	if err != nil {
		return Config{}, err
	}
	c.Kind = kind
	if c.Count < 0 {
		return Config{}, fmt.Errorf("%w: negative count %d", ErrInvalidConfig, c.Count)
	}
	if err := validateSettings(c.Settings); err != nil {
		return Config{}, err
	}
	switch c.Kind {
	case KindExpanded:
		if c.Surface != content.SurfaceHome && c.Surface != content.SurfaceLock {
			return Config{}, fmt.Errorf("%w: expanded sessions need home or lock, got %s", ErrInvalidConfig, c.Surface)
		}
	case KindHub:
		if c.Surface != content.SurfaceHub {
			return Config{}, fmt.Errorf("%w: hub sessions need the hub surface, got %s", ErrInvalidConfig, c.Surface)
		}
	case KindNative:
		if c.Package == "" {
			return Config{}, fmt.Errorf("%w: native sessions need a package", ErrInvalidConfig)
		}
	}
	return c, nil
}

func validateSettings(s settings.Snapshot) error {
	if _, err := settings.ParseHideSensitive(string(s.HideSensitive)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for _, m := range []settings.OpenMode{s.OpenModeHome, s.OpenModeLock} {
		if _, err := settings.ParseOpenMode(string(m)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if s.NativeCountLimit < 0 {
		return fmt.Errorf("%w: negative native count", ErrInvalidConfig)
	}
	return nil
}

func (c Config) WithSettings(s settings.Snapshot) Config {
	c.Settings = s
	return c
}

// Split reports whether the split merge strategy applies.
func (c Config) Split() bool {
	return c.SplitCapable && c.Settings.SplitEnabled && c.Surface == content.SurfaceLock
}
