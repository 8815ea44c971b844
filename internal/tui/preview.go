package tui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Zuo-Peng/sesslog/internal/index"
	"github.com/Zuo-Peng/sesslog/internal/render"
	"github.com/Zuo-Peng/sesslog/internal/search"
)

// previewRenderedMsg is sent when an async preview render completes.
type previewRenderedMsg struct {
	sessionKey string
	seq        int
	content    string
	hitLine    int
	err        error
}

// loadPreviewCmd returns a tea.Cmd that renders the session transcript async.
func loadPreviewCmd(db *index.DB, r search.Result, query string, width int) tea.Cmd {
	return func() tea.Msg {
		content, hitLine, err := render.RenderSession(db, r.SessionKey, render.Options{
			HitSeq:  r.Seq,
			Context: -1,
			Width:   width,
			Query:   query,
		})
		return previewRenderedMsg{
			sessionKey: r.SessionKey,
			seq:        r.Seq,
			content:    content,
			hitLine:    hitLine,
			err:        err,
		}
	}
}

// newViewport creates a new viewport model with the given dimensions.
func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.Style = stylePanelBorder
	return vp
}
