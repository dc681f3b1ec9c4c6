// Package pdf renders exported sections as paginated PDF document. Content is
// first converted into declarative node list and then laid out.
package pdf

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"folio/common"
	"folio/render"
)

const maxReportedGlyphs = 32

type Renderer struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{log: log.Named("pdf")}
}

func (r *Renderer) Render(ctx context.Context, in *render.Input) (*render.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := Build(in)
	r.log.Debug("PDF document built", zap.Int("nodes", len(doc.Nodes)), zap.String("page", in.Options.PageSize))

	missing, err := MissingGlyphs(doc)
	if err != nil {
		return nil, fmt.Errorf("unable to read embedded font: %w", err)
	}
	if len(missing) > 0 {
		r.log.Warn("Document has characters embedded font cannot display, they will be missing from output",
			zap.Int("count", len(missing)), zap.String("characters", string(missing[:min(len(missing), maxReportedGlyphs)])))
	}

	data, err := Layout(ctx, doc, in.Options.PageSize, in.Options.FontSize)
	if err != nil {
		return nil, fmt.Errorf("unable to lay out document: %w", err)
	}
	return &render.Result{
		Data:     data,
		MimeType: common.FormatPdf.MimeType(),
		FileName: in.FileName(common.FormatPdf.Ext()),
	}, nil
}
