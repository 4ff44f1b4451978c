package merge

import "github.com/flitsinc/glanced/internal/content"

// Regular emits one page per target followed, or preceded with ActionsFirst,
// by placeholder pages for unattached actions.
type Regular struct{}

func (Regular) Merge(targets, actions []content.Item, opts Options) []content.Page {
	pages := assemble(targets, actions, opts)
	if pages == nil {
		return []content.Page{}
	}
	return pages
}
