package content

import "strings"

// BlankPrefix marks placeholder targets. '!' cannot appear in a source id.
const BlankPrefix = "!blank"

// Page is one merged display unit: a target plus the actions attached to it.
type Page struct {
	Target        Item     `json:"target"`
	Placeholder   bool     `json:"placeholder,omitempty"`
	TargetSource  string   `json:"target_source,omitempty"`
	Actions       []Item   `json:"actions,omitempty"`
	ActionSources []string `json:"action_sources,omitempty"`
}

func (p Page) ID() string {
	if p.Placeholder {
		return p.Target.ID
	}
	return p.Target.UID()
}

func IsBlankID(id string) bool {
	return strings.HasPrefix(id, BlankPrefix)
}

// Sources lists the distinct source ids on the pages in first-seen order.
func Sources(pages []Page) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, p := range pages {
		add(p.TargetSource)
		for _, src := range p.ActionSources {
			add(src)
		}
	}
	return out
}
