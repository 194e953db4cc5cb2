package presenters

import (
	"log/slog"

	"github.com/reusee/trials/engine"
)

// Log writes a line whenever the set of views changes.
type Log struct {
	Logger *slog.Logger
	last   []engine.View
}

var _ Presenter = new(Log)

func (l *Log) Present(tick uint64, views []engine.View) {
	if sameViews(l.last, views) {
		return
	}
	l.last = views
	for _, view := range views {
		args := []any{
			"tick", tick,
			"node", view.Path,
			"kind", view.Kind,
		}
		if view.Text != "" {
			args = append(args, "text", view.Text)
		}
		if view.Src != "" {
			args = append(args, "src", view.Src)
		}
		l.Logger.Info("present", args...)
	}
}
