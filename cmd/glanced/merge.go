package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flitsinc/glanced/internal/content"
	"github.com/flitsinc/glanced/internal/policy"
	"github.com/flitsinc/glanced/internal/pool"
	"github.com/flitsinc/glanced/internal/session"
	"github.com/flitsinc/glanced/internal/settings"
)

// fixture is a captured pool plus the consumer to render it for. JSON
// fixtures parse too, since YAML is a superset.
type fixture struct {
	Surface  content.Surface                 `yaml:"surface"`
	Kind     session.Kind                    `yaml:"kind"`
	Count    int                             `yaml:"count"`
	Package  string                          `yaml:"package"`
	Split    bool                            `yaml:"split"`
	Ambient  bool                            `yaml:"ambient_audio"`
	Settings map[string]string               `yaml:"settings"`
	Targets  []content.Item                  `yaml:"targets"`
	Actions  []content.Item                  `yaml:"actions"`
	Configs  map[string]content.SourceConfig `yaml:"configs"`

	// Compatibility is keyed by consumer package, then template or feature.
	Compatibility map[string]content.Compatibility `yaml:"compatibility"`
}

type mergeResult struct {
	Pages []content.Page      `json:"pages"`
	Views []session.PagedView `json:"views,omitempty"`
	Stats policy.Stats        `json:"stats"`
}

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge [fixture]",
		Short: "Run policy and merge over a fixture and print the pages",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			res, err := runMerge(in)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

func runMerge(r io.Reader) (mergeResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return mergeResult{}, err
	}
	var fx fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return mergeResult{}, fmt.Errorf("parse fixture: %w", err)
	}
	if fx.Kind == "" {
		fx.Kind = session.KindClient
	}
	snap, err := settings.Defaults().Apply(fx.Settings)
	if err != nil {
		return mergeResult{}, err
	}
	cfg, err := session.NewConfig(session.Config{
		Surface:      fx.Surface,
		Count:        fx.Count,
		Kind:         fx.Kind,
		Package:      fx.Package,
		SplitCapable: fx.Split,
		Settings:     snap,
	})
	if err != nil {
		return mergeResult{}, err
	}
	snapshot := pool.Snapshot{
		Targets:       fx.Targets,
		Actions:       fx.Actions,
		Configs:       fx.Configs,
		Compatibility: fx.Compatibility,
	}

	if cfg.Kind == session.KindPagedWidget {
		strategy := session.NewPagedWidgetStrategy()
		defer strategy.Release()
		res := session.Pipeline[session.PagedView](cfg, strategy, snapshot, fx.Ambient)
		return mergeResult{Pages: res.Pages, Views: res.Items, Stats: res.Stats}, nil
	}
	strategy, err := session.NewPageStrategy(cfg.Kind)
	if err != nil {
		return mergeResult{}, err
	}
	res := session.Pipeline[content.Page](cfg, strategy, snapshot, fx.Ambient)
	return mergeResult{Pages: res.Pages, Stats: res.Stats}, nil
}
