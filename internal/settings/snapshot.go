package settings

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrUnknownKey   = errors.New("unknown setting")
	ErrInvalidValue = errors.New("invalid setting value")
)

const (
	KeyHideSensitive          = "hide_sensitive"
	KeySplitEnabled           = "split_smartspace"
	KeyActionsFirst           = "actions_first"
	KeyExpandedEnabled        = "expanded_enabled"
	KeyOpenModeHome           = "expanded_open_mode_home"
	KeyOpenModeLock           = "expanded_open_mode_lock"
	KeyNativeCountLimit       = "native_target_count"
	KeyNativeHideIncompatible = "native_hide_incompatible"
)

type HideSensitive string

const (
	HideSensitiveDisabled HideSensitive = "disabled"
	HideSensitiveContents HideSensitive = "hide_contents"
	HideSensitiveTarget   HideSensitive = "hide_target"
)

func ParseHideSensitive(raw string) (HideSensitive, error) {
	switch v := HideSensitive(strings.ToLower(strings.TrimSpace(raw))); v {
	case HideSensitiveDisabled, HideSensitiveContents, HideSensitiveTarget:
		return v, nil
	}
	return "", fmt.Errorf("%w: hide_sensitive %q", ErrInvalidValue, raw)
}

type OpenMode string

const (
	OpenModeNever       OpenMode = "never"
	OpenModeIfHasExtras OpenMode = "if_has_extras"
	OpenModeAlways      OpenMode = "always"
)

func ParseOpenMode(raw string) (OpenMode, error) {
	switch v := OpenMode(strings.ToLower(strings.TrimSpace(raw))); v {
	case OpenModeNever, OpenModeIfHasExtras, OpenModeAlways:
		return v, nil
	}
	return "", fmt.Errorf("%w: open mode %q", ErrInvalidValue, raw)
}

// Snapshot is an immutable copy of the user settings that affect filtering.
type Snapshot struct {
	HideSensitive          HideSensitive `json:"hide_sensitive"`
	SplitEnabled           bool          `json:"split_smartspace"`
	ActionsFirst           bool          `json:"actions_first"`
	ExpandedEnabled        bool          `json:"expanded_enabled"`
	OpenModeHome           OpenMode      `json:"expanded_open_mode_home"`
	OpenModeLock           OpenMode      `json:"expanded_open_mode_lock"`
	NativeCountLimit       int           `json:"native_target_count"` // 0 is automatic
	NativeHideIncompatible bool          `json:"native_hide_incompatible"`
}

func Defaults() Snapshot {
	return Snapshot{
		HideSensitive:   HideSensitiveDisabled,
		SplitEnabled:    true,
		ExpandedEnabled: true,
		OpenModeHome:    OpenModeIfHasExtras,
		OpenModeLock:    OpenModeIfHasExtras,
	}
}

// With returns a copy of s with key set to the parsed value.
func (s Snapshot) With(key, value string) (Snapshot, error) {
	var err error
	switch key {
	case KeyHideSensitive:
		s.HideSensitive, err = ParseHideSensitive(value)
	case KeySplitEnabled:
		s.SplitEnabled, err = parseBool(key, value)
	case KeyActionsFirst:
		s.ActionsFirst, err = parseBool(key, value)
	case KeyExpandedEnabled:
		s.ExpandedEnabled, err = parseBool(key, value)
	case KeyOpenModeHome:
		s.OpenModeHome, err = ParseOpenMode(value)
	case KeyOpenModeLock:
		s.OpenModeLock, err = ParseOpenMode(value)
	case KeyNativeCountLimit:
		s.NativeCountLimit, err = parseCount(value)
	case KeyNativeHideIncompatible:
		s.NativeHideIncompatible, err = parseBool(key, value)
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return s, err
}

// Apply sets every value in sorted key order and reports all failures together.
func (s Snapshot) Apply(values map[string]string) (Snapshot, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		next, err := s.With(k, values[k])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s = next
	}
	return s, errors.Join(errs...)
}

// Values renders s in the string form accepted by With.
func (s Snapshot) Values() map[string]string {
	count := "automatic"
	if s.NativeCountLimit > 0 {
		count = strconv.Itoa(s.NativeCountLimit)
	}
	return map[string]string{
		KeyHideSensitive:          string(s.HideSensitive),
		KeySplitEnabled:           strconv.FormatBool(s.SplitEnabled),
		KeyActionsFirst:           strconv.FormatBool(s.ActionsFirst),
		KeyExpandedEnabled:        strconv.FormatBool(s.ExpandedEnabled),
		KeyOpenModeHome:           string(s.OpenModeHome),
		KeyOpenModeLock:           string(s.OpenModeLock),
		KeyNativeCountLimit:       count,
		KeyNativeHideIncompatible: strconv.FormatBool(s.NativeHideIncompatible),
	}
}

func parseBool(key, raw string) (bool, error) {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%w: %s %q", ErrInvalidValue, key, raw)
	}
	return v, nil
}

func parseCount(raw string) (int, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "automatic" || raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidValue, KeyNativeCountLimit, raw)
	}
	return n, nil
}
