package session

import (
	"github.com/flitsinc/glanced/internal/content"
	"github.com/flitsinc/glanced/internal/merge"
	"github.com/flitsinc/glanced/internal/policy"
	"github.com/flitsinc/glanced/internal/pool"
)

// Result is one pass of the pipeline: the trimmed pages, what the consumer
// receives for them, and what policy removed on the way.
type Result[T any] struct {
	Pages []content.Page
	Items []T
	Stats policy.Stats
}

// Pipeline runs policy, merge, trim and convert over snap for one consumer.
// It is pure apart from strategies that keep cursor state.
func Pipeline[T any](cfg Config, strategy Strategy[T], snap pool.Snapshot, ambient bool) Result[T] {
	caps := strategy.Capabilities()
	surface := strategy.Surface(cfg)
	out := policy.Apply(policy.Input{
		Targets:       snap.Targets,
		Actions:       snap.Actions,
		Configs:       snap.Configs,
		Compatibility: snap.Compatibility,
		Options: policy.Options{
			Surface:      surface,
			Settings:     cfg.Settings,
			AmbientAudio: ambient && caps.AmbientAudio && surface == content.SurfaceLock,
			Expanded:     caps.Expanded,
			Native:       caps.Native,
			Package:      cfg.Package,
		},
	})

	merger := merge.Select(cfg.SplitCapable && cfg.Settings.SplitEnabled, surface)
	pages := merger.Merge(out.Targets, out.Actions, merge.Options{ActionsFirst: cfg.Settings.ActionsFirst})
	pages = strategy.Trim(pages, cfg)

	items := strategy.Convert(pages, cfg)
	if items == nil {
		items = []T{}
	}
	return Result[T]{Pages: pages, Items: items, Stats: out.Stats}
}
