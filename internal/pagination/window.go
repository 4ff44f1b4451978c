// Package pagination keeps a cursor over a changing page list for consumers
// that show one page at a time.
package pagination

import "sync"

type Dot string

const (
	DotRegular     Dot = "regular"
	DotHighlighted Dot = "highlighted"
)

type State struct {
	Index     int   `json:"index"`
	PageCount int   `json:"page_count"`
	IsFirst   bool  `json:"is_first"`
	IsLast    bool  `json:"is_last"`
	IsOnly    bool  `json:"is_only_page"`
	Dots      []Dot `json:"dots"`
}

// Window is safe for concurrent use. The cursor always satisfies
// 0 <= cursor < max(pageCount, 1).
type Window struct {
	mu        sync.Mutex
	index     int
	pageCount int
}

func NewWindow(pageCount int) *Window {
	w := &Window{}
	w.Update(pageCount)
	return w
}

// Next advances the cursor, wrapping to the first page after the last.
func (w *Window) Next() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.index+1 >= w.pageCount {
		w.index = 0
	} else {
		w.index++
	}
	return w.stateLocked()
}

// Previous moves back one page and stops at the first.
func (w *Window) Previous() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.index > 0 {
		w.index--
	}
	return w.stateLocked()
}

// Update records a new page count and clamps the cursor to the last valid page.
func (w *Window) Update(pageCount int) State {
	w.mu.Lock()
	defer w.mu.Unlock()
	if pageCount < 0 {
		pageCount = 0
	}
	w.pageCount = pageCount
	if w.index > pageCount-1 {
		w.index = max(pageCount-1, 0)
	}
	return w.stateLocked()
}

func (w *Window) Index() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.index
}

func (w *Window) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

func (w *Window) stateLocked() State {
	dots := make([]Dot, w.pageCount)
	for i := range dots {
		dots[i] = DotRegular
		if i == w.index {
			dots[i] = DotHighlighted
		}
	}
	return State{
		Index:     w.index,
		PageCount: w.pageCount,
		IsFirst:   w.index == 0,
		IsLast:    w.index >= w.pageCount-1,
		IsOnly:    w.pageCount <= 1,
		Dots:      dots,
	}
}
