// Package merge combines filtered targets and actions into ordered pages.
package merge

import (
	"sort"

	"github.com/flitsinc/glanced/internal/content"
)

type Options struct {
	// ActionsFirst puts placeholder pages before target pages.
	ActionsFirst bool
}

type Merger interface {
	Merge(targets, actions []content.Item, opts Options) []content.Page
}

// Select returns Split for split-capable lock surfaces and Regular otherwise.
func Select(splitCapable bool, surface content.Surface) Merger {
	if splitCapable && surface == content.SurfaceLock {
		return Split{}
	}
	return Regular{}
}

// orderActions keeps provider order and sorts by id within one provider.
func orderActions(actions []content.Item) []content.Item {
	rank := map[string]int{}
	for _, a := range actions {
		if _, ok := rank[a.SourceID]; !ok {
			rank[a.SourceID] = len(rank)
		}
	}
	out := make([]content.Item, len(actions))
	copy(out, actions)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank[out[i].SourceID], rank[out[j].SourceID]
		if ri != rj {
			return ri < rj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type queue struct {
	items []content.Item
}

func (q *queue) peek() (content.Item, bool) {
	if len(q.items) == 0 {
		return content.Item{}, false
	}
	return q.items[0], true
}

func (q *queue) pop() (content.Item, bool) {
	it, ok := q.peek()
	if ok {
		q.items = q.items[1:]
	}
	return it, ok
}

func takesTwo(t content.Item) bool {
	return t.CanTakeTwoActions && t.FeatureOrUndefined() == content.FeatureUndefined
}

func acceptsHeader(t content.Item) bool {
	if takesTwo(t) {
		return true
	}
	return t.IsWeather() && (t.Header == nil || t.Header.Subtitle == "")
}

func acceptsBase(t content.Item) bool {
	return takesTwo(t) || t.Base.Empty()
}

func slotFor(a content.Item) *content.Slot {
	return &content.Slot{
		ID:        a.UID(),
		Title:     a.Payload.Title,
		Subtitle:  a.Payload.Subtitle,
		Icon:      a.Payload.Icon,
		TapAction: a.Payload.TapAction,
	}
}

// pair attaches queued actions to each target's free slots.
func pair(targets []content.Item, q *queue) []content.Page {
	pages := make([]content.Page, 0, len(targets))
	for _, t := range targets {
		t = t.Clone()
		page := content.Page{TargetSource: t.SourceID, Actions: []content.Item{}, ActionSources: []string{}}

		if _, ok := q.peek(); ok && acceptsHeader(t) {
			a, _ := q.pop()
			slot := slotFor(a)
			// The target's own header title survives; only two-action targets set one.
			slot.Title = ""
			if t.Header != nil {
				slot.Title = t.Header.Title
			}
			t.Header = slot
			page.Actions = append(page.Actions, a)
			page.ActionSources = append(page.ActionSources, a.SourceID)
		}
		if _, ok := q.peek(); ok && acceptsBase(t) {
			a, _ := q.pop()
			t.Base = slotFor(a)
			page.Actions = append(page.Actions, a)
			page.ActionSources = append(page.ActionSources, a.SourceID)
		}
		page.Target = t
		pages = append(pages, page)
	}
	return pages
}

// placeholders packs leftover actions two per blank page.
func placeholders(q *queue) []content.Page {
	var pages []content.Page
	for {
		first, ok := q.pop()
		if !ok {
			return pages
		}
		t := content.Item{
			ID:      content.BlankPrefix + "_" + first.UID(),
			Kind:    content.KindTarget,
			Feature: content.FeatureUndefined,
			Header:  slotFor(first),
		}
		page := content.Page{
			Placeholder:   true,
			Actions:       []content.Item{first},
			ActionSources: []string{first.SourceID},
		}
		if second, ok := q.pop(); ok {
			t.Base = slotFor(second)
			page.Actions = append(page.Actions, second)
			page.ActionSources = append(page.ActionSources, second.SourceID)
		}
		page.Target = t
		pages = append(pages, page)
	}
}

func assemble(targets, actions []content.Item, opts Options) []content.Page {
	q := &queue{items: orderActions(actions)}
	pages := pair(targets, q)
	blanks := placeholders(q)
	if opts.ActionsFirst {
		return append(blanks, pages...)
	}
	return append(pages, blanks...)
}
