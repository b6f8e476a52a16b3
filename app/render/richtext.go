// Package render turns rich-text bodies into HTML.
package render

import (
	"html/template"
	"net/url"
	"strings"
	"sync"

	"mediumplus/app/models"
)

// BlockRenderer writes the HTML for a single block.
type BlockRenderer func(r *Renderer, b models.Block) template.HTML

// Renderer dispatches on Block.Kind. Kinds without a registered renderer go
// through the fallback, so new block types from the CMS still render.
type Renderer struct {
	mu       sync.RWMutex
	kinds    map[string]BlockRenderer
	fallback BlockRenderer
	images   ImageURLBuilder
}

func New(images ImageURLBuilder) *Renderer {
	r := &Renderer{
		kinds:    make(map[string]BlockRenderer),
		fallback: renderUnknown,
		images:   images,
	}
	r.Register("paragraph", renderText("p"))
	r.Register("blockquote", renderText("blockquote"))
	r.Register("heading", renderHeading)
	r.Register("image", renderImage)
	return r
}

// Register installs or replaces the renderer for kind.
func (r *Renderer) Register(kind string, fn BlockRenderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[kind] = fn
}

func (r *Renderer) lookup(kind string) BlockRenderer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if fn, ok := r.kinds[kind]; ok {
		return fn
	}
	return r.fallback
}

// Images exposes the URL builder used for image blocks.
func (r *Renderer) Images() ImageURLBuilder { return r.images }

// Render converts a body to HTML. Consecutive list items are grouped into
// (possibly nested) lists.
func (r *Renderer) Render(body models.Body) template.HTML {
	var sb strings.Builder
	for i := 0; i < len(body); {
		if item, ok := listItem(body[i]); ok {
			items := []*models.TextBlock{item}
			for i++; i < len(body); i++ {
				next, ok := listItem(body[i])
				if !ok {
					break
				}
				items = append(items, next)
			}
			r.writeList(&sb, items)
			continue
		}
		sb.WriteString(string(r.lookup(body[i].Kind())(r, body[i])))
		i++
	}
	return template.HTML(sb.String())
}

func listItem(b models.Block) (*models.TextBlock, bool) {
	tb, ok := b.(*models.TextBlock)
	if !ok || tb.Kind() != "list-item" {
		return nil, false
	}
	return tb, true
}

func listTag(style string) string {
	if style == "number" {
		return "ol"
	}
	return "ul"
}

type listFrame struct {
	tag    string
	liOpen bool
}

func (r *Renderer) writeList(sb *strings.Builder, items []*models.TextBlock) {
	var stack []*listFrame
	closeTop := func() {
		top := stack[len(stack)-1]
		if top.liOpen {
			sb.WriteString("</li>")
		}
		sb.WriteString("</" + top.tag + ">")
		stack = stack[:len(stack)-1]
	}

	for _, item := range items {
		level := item.Level
		if level < 1 {
			level = 1
		}
		tag := listTag(item.ListItem)

		for len(stack) > level {
			closeTop()
		}
		if len(stack) == level && stack[level-1].tag != tag {
			closeTop()
		}
		if len(stack) == level && stack[level-1].liOpen {
			sb.WriteString("</li>")
			stack[level-1].liOpen = false
		}
		for len(stack) < level {
			if n := len(stack); n > 0 && !stack[n-1].liOpen {
				sb.WriteString("<li>")
				stack[n-1].liOpen = true
			}
			sb.WriteString("<" + tag + ">")
			stack = append(stack, &listFrame{tag: tag})
		}

		sb.WriteString("<li>")
		sb.WriteString(string(r.spans(item)))
		stack[len(stack)-1].liOpen = true
	}
	for len(stack) > 0 {
		closeTop()
	}
}

func renderText(tag string) BlockRenderer {
	return func(r *Renderer, b models.Block) template.HTML {
		tb, ok := b.(*models.TextBlock)
		if !ok {
			return renderUnknown(r, b)
		}
		return template.HTML("<" + tag + ">" + string(r.spans(tb)) + "</" + tag + ">")
	}
}

func renderHeading(r *Renderer, b models.Block) template.HTML {
	tb, ok := b.(*models.TextBlock)
	if !ok {
		return renderUnknown(r, b)
	}
	return renderText(tb.Style)(r, b)
}

func renderImage(r *Renderer, b models.Block) template.HTML {
	ib, ok := b.(*models.ImageBlock)
	if !ok {
		return renderUnknown(r, b)
	}
	src := r.images.URL(ib.Asset, 1200)
	if src == "" {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(`<figure class="block block-image"><img src="`)
	sb.WriteString(template.HTMLEscapeString(src))
	sb.WriteString(`" alt="`)
	sb.WriteString(template.HTMLEscapeString(ib.Alt))
	sb.WriteString(`" loading="lazy">`)
	if ib.Caption != "" {
		sb.WriteString("<figcaption>" + template.HTMLEscapeString(ib.Caption) + "</figcaption>")
	}
	sb.WriteString("</figure>")
	return template.HTML(sb.String())
}

type plainTexter interface {
	PlainText() string
}

// renderUnknown is the default for kinds nothing is registered for: any span
// text the block carries becomes a paragraph, otherwise an empty marker div.
func renderUnknown(_ *Renderer, b models.Block) template.HTML {
	class := "block block-" + cssIdent(b.BlockType())
	if pt, ok := b.(plainTexter); ok {
		if text := pt.PlainText(); text != "" {
			return template.HTML(`<p class="` + class + `">` + escapeText(text) + "</p>")
		}
	}
	return template.HTML(`<div class="block block-unknown" data-type="` + template.HTMLEscapeString(b.BlockType()) + `"></div>`)
}

var decorators = map[string]string{
	"strong":         "strong",
	"em":             "em",
	"code":           "code",
	"underline":      "u",
	"strike-through": "s",
}

func (r *Renderer) spans(tb *models.TextBlock) template.HTML {
	var sb strings.Builder
	for _, span := range tb.Children {
		var open, closing []string
		for _, mark := range span.Marks {
			if tag, ok := decorators[mark]; ok {
				open = append(open, "<"+tag+">")
				closing = append([]string{"</" + tag + ">"}, closing...)
				continue
			}
			def, ok := tb.MarkDef(mark)
			if !ok || def.Type != "link" {
				continue
			}
			a := `<a href="` + template.HTMLEscapeString(safeHref(def.Href)) + `"`
			if def.Blank {
				a += ` target="_blank" rel="noopener noreferrer"`
			}
			open = append(open, a+">")
			closing = append([]string{"</a>"}, closing...)
		}
		sb.WriteString(strings.Join(open, ""))
		sb.WriteString(escapeText(span.Text))
		sb.WriteString(strings.Join(closing, ""))
	}
	return template.HTML(sb.String())
}

func escapeText(s string) string {
	return strings.ReplaceAll(template.HTMLEscapeString(s), "\n", "<br>")
}

func safeHref(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "#"
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return u.String()
	default:
		return "#"
	}
}

func cssIdent(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('-')
		}
	}
	if sb.Len() == 0 {
		return "unknown"
	}
	return sb.String()
}
