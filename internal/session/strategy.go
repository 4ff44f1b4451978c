package session

import (
	"fmt"

	"github.com/google/go-cmp/cmp"

	"github.com/flitsinc/glanced/internal/content"
	"github.com/flitsinc/glanced/internal/merge"
	"github.com/flitsinc/glanced/internal/pagination"
)

// Capabilities are the per-kind switches the pipeline consults.
type Capabilities struct {
	Periodic     bool
	AmbientAudio bool
	Expanded     bool
	Native       bool
}

// Strategy adapts the shared pipeline to one consumer kind.
type Strategy[T any] interface {
	Kind() Kind
	Capabilities() Capabilities
	// Surface is the surface policy filters for.
	Surface(cfg Config) content.Surface
	Trim(pages []content.Page, cfg Config) []content.Page
	Convert(pages []content.Page, cfg Config) []T
	Equal(a, b []T) bool
}

// Paginator is implemented by strategies that show one page at a time.
type Paginator interface {
	Window() *pagination.Window
}

// Releaser is implemented by strategies holding resources past Destroy.
type Releaser interface {
	Release()
}

var pageCaps = map[Kind]Capabilities{
	KindClient:     {Periodic: true, AmbientAudio: true},
	KindListWidget: {Periodic: true},
	KindNative:     {AmbientAudio: true, Native: true},
	KindOEM:        {Periodic: true},
	KindHub:        {Periodic: true},
	KindExpanded:   {Periodic: true, Expanded: true},
}

// PageStrategy delivers merged pages unchanged. It serves every kind except
// the paged widget.
type PageStrategy struct {
	kind Kind
	caps Capabilities
}

func NewPageStrategy(kind Kind) (*PageStrategy, error) {
	caps, ok := pageCaps[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no page strategy for %q", ErrInvalidConfig, kind)
	}
	return &PageStrategy{kind: kind, caps: caps}, nil
}

func (s *PageStrategy) Kind() Kind                 { return s.kind }
func (s *PageStrategy) Capabilities() Capabilities { return s.caps }

func (s *PageStrategy) Surface(cfg Config) content.Surface {
	if s.kind == KindHub {
		return content.SurfaceHome
	}
	return cfg.Surface
}

func (s *PageStrategy) Trim(pages []content.Page, cfg Config) []content.Page {
	if s.kind != KindNative {
		return takeFirst(pages, cfg.Count)
	}
	n := cfg.Count
	if cfg.Settings.NativeCountLimit > 0 {
		n = cfg.Settings.NativeCountLimit
	}
	if n != Unlimited && cfg.Split() {
		n += merge.WeatherPages(pages)
	}
	return takeFirst(pages, n)
}

func (s *PageStrategy) Convert(pages []content.Page, _ Config) []content.Page {
	return pages
}

func (s *PageStrategy) Equal(a, b []content.Page) bool {
	return cmp.Equal(a, b)
}

func takeFirst(pages []content.Page, n int) []content.Page {
	if n == Unlimited || len(pages) <= n {
		return pages
	}
	return pages[:n]
}

// PagedView is what a paged widget renders: the page under the cursor and
// the indicator state.
type PagedView struct {
	Page  content.Page     `json:"page"`
	State pagination.State `json:"state"`
}

// DatePageID identifies the placeholder shown when no page exists.
const DatePageID = content.BlankPrefix + "_date"

// PagedWidgetStrategy owns one pagination window per session.
type PagedWidgetStrategy struct {
	window *pagination.Window
}

func NewPagedWidgetStrategy() *PagedWidgetStrategy {
	return &PagedWidgetStrategy{window: pagination.NewWindow(0)}
}

func (s *PagedWidgetStrategy) Kind() Kind                         { return KindPagedWidget }
func (s *PagedWidgetStrategy) Capabilities() Capabilities         { return Capabilities{Periodic: true} }
func (s *PagedWidgetStrategy) Surface(cfg Config) content.Surface { return cfg.Surface }
func (s *PagedWidgetStrategy) Window() *pagination.Window         { return s.window }

func (s *PagedWidgetStrategy) Trim(pages []content.Page, cfg Config) []content.Page {
	return takeFirst(pages, cfg.Count)
}

func (s *PagedWidgetStrategy) Convert(pages []content.Page, _ Config) []PagedView {
	st := s.window.Update(len(pages))
	if len(pages) == 0 {
		date := content.Page{
			Placeholder: true,
			Target:      content.Item{ID: DatePageID, Kind: content.KindTarget, Feature: content.FeatureUndefined},
			Actions:     []content.Item{},
		}
		return []PagedView{{Page: date, State: st}}
	}
	return []PagedView{{Page: pages[st.Index], State: st}}
}

func (s *PagedWidgetStrategy) Equal(a, b []PagedView) bool {
	return cmp.Equal(a, b)
}

func (s *PagedWidgetStrategy) Release() {
	s.window.Update(0)
}
