// Package wordcodec wraps the go-docx library behind a small codec that the
// DOCX converter drives: load bytes into an editable document, save one back,
// and look up paragraph styles.
//
// Every call into the library runs on its own goroutine so that a hung or
// panicking parse cannot take the caller down with it.
package wordcodec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fumiama/go-docx"
)

// ErrPanic reports a panic recovered from inside the library.
var ErrPanic = errors.New("docx codec panicked")

// Codec loads and saves DOCX packages.
type Codec struct {
	timeout time.Duration
	styles  StyleMap
	log     *slog.Logger
}

// NewCodec returns a codec whose calls are bounded by timeout. A zero timeout
// leaves the caller's context as the only bound.
func NewCodec(timeout time.Duration, log *slog.Logger) *Codec {
	if log == nil {
		log = slog.Default()
	}
	return &Codec{timeout: timeout, log: log}
}

// Styles returns the style lookup table used for import and export.
func (c *Codec) Styles() StyleMap { return c.styles }

// New returns an empty document with the default theme applied.
func (c *Codec) New() *docx.Docx {
	return docx.New().WithDefaultTheme()
}

// Load parses a DOCX package.
func (c *Codec) Load(ctx context.Context, data []byte) (*docx.Docx, error) {
	var doc *docx.Docx
	err := c.run(ctx, "load", func() error {
		d, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load docx: %w", err)
	}
	c.log.Debug("docx loaded", "bytes", len(data), "items", len(doc.Document.Body.Items))
	return doc, nil
}

// Save serialises doc into a DOCX package.
func (c *Codec) Save(ctx context.Context, doc *docx.Docx) ([]byte, error) {
	var buf bytes.Buffer
	err := c.run(ctx, "save", func() error {
		_, err := doc.WriteTo(&buf)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("save docx: %w", err)
	}
	c.log.Debug("docx saved", "bytes", buf.Len())
	return buf.Bytes(), nil
}

func (c *Codec) run(ctx context.Context, op string, fn func() error) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.log.Error("docx codec panic", "op", op, "panic", r)
				done <- fmt.Errorf("%s: %w: %v", op, ErrPanic, r)
			}
		}()
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
