package tui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
)

type mdKey struct {
	style string
	width int
}

// descriptions renders event descriptions for the detail pane. View runs on
// every frame, so both the glamour renderer and the last output per key are
// kept. The style always comes from the theme: WithAutoStyle can block on a
// terminal background query.
var descriptions = struct {
	sync.Mutex
	renderers map[mdKey]*glamour.TermRenderer
	lastSrc   map[mdKey]string
	lastOut   map[mdKey]string
}{
	renderers: map[mdKey]*glamour.TermRenderer{},
	lastSrc:   map[mdKey]string{},
	lastOut:   map[mdKey]string{},
}

func renderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	key := mdKey{style: themeName(), width: max(width, 10)}

	descriptions.Lock()
	defer descriptions.Unlock()

	if out, ok := descriptions.lastOut[key]; ok && descriptions.lastSrc[key] == md {
		return out
	}
	r := descriptions.renderers[key]
	if r == nil {
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithStyles(descriptionStyle(key.style)),
			glamour.WithWordWrap(key.width),
		)
		if err != nil {
			return md
		}
		descriptions.renderers[key] = r
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	out = strings.TrimRight(out, "\n")
	descriptions.lastSrc[key], descriptions.lastOut[key] = md, out
	return out
}

func descriptionStyle(style string) ansi.StyleConfig {
	cfg := styles.DarkStyleConfig
	text, link := colorSurfaceFg.Dark, colorAccent.Dark
	if style == "light" {
		cfg = styles.LightStyleConfig
		text, link = colorSurfaceFg.Light, colorAccent.Light
	}
	// The detail pane pads itself.
	var none uint
	cfg.Document.Margin = &none
	cfg.Paragraph.Margin = &none

	cfg.Text.Color = &text
	cfg.Link.Color = &link
	cfg.LinkText.Color = &link
	cfg.Strong.Color, cfg.Emph.Color = nil, nil
	cfg.H1.Prefix, cfg.H2.Prefix, cfg.H3.Prefix = "", "", ""
	return cfg
}
