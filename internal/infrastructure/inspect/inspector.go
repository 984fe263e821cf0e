// Package inspect sniffs uploaded attachment bytes and verifies that
// documents claiming to be PDFs or images can actually be opened.
package inspect

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/garyjia/expense-claims/internal/application/port"
)

// Inspector implements port.DocumentInspector
type Inspector struct {
	logger *zap.Logger
}

// NewInspector creates a new content inspector
func NewInspector(logger *zap.Logger) *Inspector {
	return &Inspector{logger: logger}
}

// Inspect detects the MIME type from content and, for PDFs and images,
// checks that the payload parses
func (i *Inspector) Inspect(ctx context.Context, content []byte) (*port.DocumentInfo, error) {
	mtype := mimetype.Detect(content)
	info := &port.DocumentInfo{
		MIMEType:  baseType(mtype.String()),
		Extension: mtype.Extension(),
	}

	switch {
	case mtype.Is("application/pdf"):
		pages, err := i.countPages(content)
		if err != nil {
			return nil, err
		}
		info.PageCount = pages
	case strings.HasPrefix(info.MIMEType, "image/"):
		if _, _, err := image.DecodeConfig(bytes.NewReader(content)); err != nil {
			i.logger.Debug("Image failed to decode", zap.String("mime_type", info.MIMEType), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", port.ErrUnreadableDocument, err)
		}
		info.PageCount = 1
	}

	return info, nil
}

// countPages opens the PDF with MuPDF
func (i *Inspector) countPages(content []byte) (int, error) {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		i.logger.Debug("PDF failed to open", zap.Error(err))
		return 0, fmt.Errorf("%w: %v", port.ErrUnreadableDocument, err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages < 1 {
		return 0, fmt.Errorf("%w: pdf has no pages", port.ErrUnreadableDocument)
	}
	return pages, nil
}

// baseType strips parameters such as "; charset=utf-8"
func baseType(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.TrimSpace(mime)
}

// Verify interface compliance
var _ port.DocumentInspector = (*Inspector)(nil)
