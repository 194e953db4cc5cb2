package presenters

import (
	"slices"

	"github.com/reusee/trials/engine"
)

// Presenter shows the views of each tick. Present runs on the tick goroutine and must not block.
type Presenter interface {
	Present(tick uint64, views []engine.View)
}

type multi []Presenter

// Multi presents to each presenter in order.
func Multi(presenters ...Presenter) Presenter {
	return multi(slices.DeleteFunc(presenters, func(p Presenter) bool {
		return p == nil
	}))
}

func (m multi) Present(tick uint64, views []engine.View) {
	for _, p := range m {
		p.Present(tick, views)
	}
}

func sameViews(a, b []engine.View) bool {
	return slices.EqualFunc(a, b, func(x, y engine.View) bool {
		return x == y
	})
}
