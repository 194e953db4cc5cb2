package presenters

import (
	"bytes"
	"fmt"
	"html"
	"sync"

	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/engine"
	"github.com/yuin/goldmark"
)

// HTML renders the current views as a page. Instruction text is markdown.
type HTML struct {
	Background string

	markdown goldmark.Markdown
	mu       sync.Mutex
	last     []engine.View
	frame    []byte
}

var _ Presenter = new(HTML)

func NewHTML(background string) *HTML {
	return &HTML{
		Background: background,
		markdown:   goldmark.New(),
	}
}

func (h *HTML) Present(tick uint64, views []engine.View) {
	h.mu.Lock()
	same := h.frame != nil && sameViews(h.last, views)
	h.mu.Unlock()
	if same {
		return
	}
	frame := h.render(views)
	h.mu.Lock()
	h.last = views
	h.frame = frame
	h.mu.Unlock()
}

// Frame returns the latest rendered page.
func (h *HTML) Frame() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frame
}

func (h *HTML) render(views []engine.View) []byte {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, `<div class="block" style="position:relative;width:100%%;height:100%%;background:%s">`, html.EscapeString(h.Background))
	for _, view := range views {
		fmt.Fprintf(buf,
			`<div class="%s" style="position:absolute;left:%g%%;top:%g%%;width:%g%%;height:%g%%">`,
			view.Kind, view.Rect.X*100, view.Rect.Y*100, view.Rect.W*100, view.Rect.H*100,
		)
		switch view.Kind {
		case actions.KindInstruction:
			if view.Header != "" {
				fmt.Fprintf(buf, "<h1>%s</h1>", html.EscapeString(view.Header))
			}
			if err := h.markdown.Convert([]byte(view.Text), buf); err != nil {
				fmt.Fprintf(buf, "<pre>%s</pre>", html.EscapeString(view.Text))
			}
		case actions.KindFixation:
			buf.WriteString(`<span class="cross">+</span>`)
		case actions.KindImage:
			fmt.Fprintf(buf, `<img src="%s">`, html.EscapeString(view.Src))
		case actions.KindVideo:
			fmt.Fprintf(buf, `<video src="%s" autoplay></video>`, html.EscapeString(view.Src))
		}
		buf.WriteString("</div>")
	}
	buf.WriteString("</div>")
	return buf.Bytes()
}
