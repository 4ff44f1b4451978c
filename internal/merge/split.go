package merge

import "github.com/flitsinc/glanced/internal/content"

// Split is Regular with the first weather page pinned to the front, where
// split-capable lock surfaces render it in its own slot.
type Split struct{}

func (Split) Merge(targets, actions []content.Item, opts Options) []content.Page {
	pages := Regular{}.Merge(targets, actions, opts)
	for i, p := range pages {
		if p.Placeholder || !p.Target.IsWeather() {
			continue
		}
		if i > 0 {
			copy(pages[1:i+1], pages[:i])
			pages[0] = p
		}
		break
	}
	return pages
}

// WeatherPages counts the non-placeholder weather pages.
func WeatherPages(pages []content.Page) int {
	n := 0
	for _, p := range pages {
		if !p.Placeholder && p.Target.IsWeather() {
			n++
		}
	}
	return n
}
