package parse

import (
	"bytes"
	"context"
	"fmt"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"

	"folio/ir"
)

// Markdown parses CommonMark with GFM extensions. Markdown is rendered to
// HTML first and converted by shared HTML walker. Raw HTML is allowed
// through so that inline markup produced by our own renderer (underline,
// entity spans) survives.
type Markdown struct {
	log    *zap.Logger
	engine goldmark.Markdown
}

func NewMarkdown(log *zap.Logger) *Markdown {
	if log == nil {
		log = zap.NewNop()
	}
	return &Markdown{
		log: log.Named("markdown"),
		engine: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

type frontMatter struct {
	Title  string `yaml:"title"`
	Author string `yaml:"author"`
}

func (p *Markdown) Parse(ctx context.Context, data []byte, name string) ([]ir.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var meta frontMatter
	body, err := frontmatter.Parse(bytes.NewReader(data), &meta)
	if err != nil {
		p.log.Warn("Unable to parse front matter, using whole document", zap.String("file", name), zap.Error(err))
		body = data
	} else if meta.Title != "" {
		p.log.Debug("Front matter stripped", zap.String("file", name), zap.String("title", meta.Title))
	}

	var buf bytes.Buffer
	if err := p.engine.Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("unable to convert markdown %s: %w", name, err)
	}
	return HTMLToBlocks(buf.String(), p.log)
}
