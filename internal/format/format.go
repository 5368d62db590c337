// Package format converts documents to and from external file formats.
//
// Import runs bytes through one Importer into a brand-new document and
// validates it before handing it back; export only reads the document it is
// given. Neither direction ever mutates a document in place.
package format

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/thoulee21/bedit/internal/doctree"
	"github.com/thoulee21/bedit/internal/wordcodec"
)

// Format names a supported file format by its canonical extension.
type Format string

const (
	Text     Format = "txt"
	Markdown Format = "md"
	HTML     Format = "html"
	JSON     Format = "json"
	DOCX     Format = "docx"
	PDF      Format = "pdf"
	CSV      Format = "csv"
)

var extensions = map[string]Format{
	".txt":      Text,
	".text":     Text,
	".md":       Markdown,
	".markdown": Markdown,
	".html":     HTML,
	".htm":      HTML,
	".json":     JSON,
	".docx":     DOCX,
	".pdf":      PDF,
	".csv":      CSV,
}

// ParseFormat maps a format name or extension ("md", ".md", "markdown") to a
// Format.
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}
	if f, ok := extensions[name]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, strings.TrimPrefix(name, "."))
}

// FormatForFile picks the format from a filename's extension.
func FormatForFile(filename string) (Format, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		return "", fmt.Errorf("%w: no extension on %q", ErrUnsupportedFormat, filename)
	}
	return ParseFormat(ext)
}

// ContentType is the MIME type served for exported files.
func (f Format) ContentType() string {
	switch f {
	case Text:
		return "text/plain; charset=utf-8"
	case Markdown:
		return "text/markdown; charset=utf-8"
	case HTML:
		return "text/html; charset=utf-8"
	case JSON:
		return "application/json"
	case DOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case PDF:
		return "application/pdf"
	case CSV:
		return "text/csv; charset=utf-8"
	}
	return "application/octet-stream"
}

// FileMetadata describes an imported or exported file. It is not part of
// the document.
type FileMetadata struct {
	Title      string    `json:"title"`
	Format     Format    `json:"format"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Result is a freshly imported document.
type Result struct {
	Doc      *doctree.Document
	Metadata FileMetadata
}

// Output is a serialised document.
type Output struct {
	Data     []byte
	Metadata FileMetadata
}

// Importer builds a new document from r. Importers may set
// Result.Metadata.Title; the registry fills in the rest.
type Importer interface {
	Import(ctx context.Context, r io.Reader, filename string) (*Result, error)
}

// Exporter writes doc to w.
type Exporter interface {
	Export(ctx context.Context, doc *doctree.Document, w io.Writer) error
}

// Options configures the converters of a Registry.
type Options struct {
	MaxInputBytes        int64
	SanitizeHTML         bool
	MinifyHTML           bool
	PDFFallbackPdftotext bool
	Codec                *wordcodec.Codec
	Logger               *slog.Logger
}

// Registry maps formats to their converters.
type Registry struct {
	importers map[Format]Importer
	exporters map[Format]Exporter
	maxInput  int64
	log       *slog.Logger
	now       func() time.Time
}

// NewRegistry wires every built-in converter.
func NewRegistry(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Codec == nil {
		opts.Codec = wordcodec.NewCodec(0, opts.Logger)
	}
	md := &MarkdownConverter{}
	htm := &HTMLConverter{Sanitize: opts.SanitizeHTML, Minify: opts.MinifyHTML}
	dx := &DOCXConverter{Codec: opts.Codec}
	cv := &CSVConverter{}
	return &Registry{
		importers: map[Format]Importer{
			Text:     &TextConverter{},
			Markdown: md,
			HTML:     htm,
			JSON:     &JSONConverter{},
			DOCX:     dx,
			PDF:      &PDFImporter{FallbackPdftotext: opts.PDFFallbackPdftotext},
			CSV:      cv,
		},
		exporters: map[Format]Exporter{
			Text:     &TextConverter{},
			Markdown: md,
			HTML:     htm,
			JSON:     &JSONConverter{},
			DOCX:     dx,
			CSV:      cv,
		},
		maxInput: opts.MaxInputBytes,
		log:      opts.Logger,
		now:      time.Now,
	}
}

// ForFile returns the importer for a filename.
func (r *Registry) ForFile(filename string) (Importer, Format, error) {
	f, err := FormatForFile(filename)
	if err != nil {
		return nil, "", err
	}
	imp, ok := r.importers[f]
	if !ok {
		return nil, "", fmt.Errorf("%w: cannot import %s", ErrUnsupportedFormat, f)
	}
	return imp, f, nil
}

// Import reads src in format f into a new, validated document. An empty
// result is replaced by a document holding one empty paragraph, except for
// JSON, whose empty array is kept as written.
func (r *Registry) Import(ctx context.Context, f Format, src io.Reader, filename string) (*Result, error) {
	imp, ok := r.importers[f]
	if !ok {
		return nil, fmt.Errorf("%w: cannot import %s", ErrUnsupportedFormat, f)
	}

	data, err := r.readLimited(src)
	if err != nil {
		return nil, err
	}
	start := r.now()
	res, err := imp.Import(ctx, bytes.NewReader(data), filename)
	if err != nil {
		return nil, err
	}
	if len(res.Doc.Children) == 0 && f != JSON {
		res.Doc = doctree.New()
	}
	if err := doctree.Validate(res.Doc); err != nil {
		return nil, parseErr(f, err)
	}

	md := &res.Metadata
	if md.Title == "" {
		md.Title = titleFromFilename(filename)
	}
	md.Format = f
	md.Size = int64(len(data))
	md.CreatedAt = start
	md.ModifiedAt = start
	r.log.Debug("imported document", "format", f, "file", filename, "bytes", len(data),
		"blocks", len(res.Doc.Children), "elapsed", r.now().Sub(start))
	return res, nil
}

// Export serialises doc in format f.
func (r *Registry) Export(ctx context.Context, f Format, doc *doctree.Document, title string) (*Output, error) {
	exp, ok := r.exporters[f]
	if !ok {
		return nil, fmt.Errorf("%w: cannot export %s", ErrUnsupportedFormat, f)
	}
	var buf bytes.Buffer
	if err := exp.Export(ctx, doc, &buf); err != nil {
		var ce *ExternalCodecError
		var ee *ExportError
		if errors.As(err, &ce) || errors.As(err, &ee) {
			return nil, err
		}
		return nil, &ExportError{Format: f, Err: err}
	}
	now := r.now()
	return &Output{
		Data: buf.Bytes(),
		Metadata: FileMetadata{
			Title:      title,
			Format:     f,
			Size:       int64(buf.Len()),
			CreatedAt:  now,
			ModifiedAt: now,
		},
	}, nil
}

func (r *Registry) readLimited(src io.Reader) ([]byte, error) {
	if r.maxInput <= 0 {
		return io.ReadAll(src)
	}
	data, err := io.ReadAll(io.LimitReader(src, r.maxInput+1))
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if int64(len(data)) > r.maxInput {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrInputTooLarge, r.maxInput)
	}
	return data, nil
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// readText reads all of r and rejects invalid UTF-8.
func readText(f Format, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", f, err)
	}
	if !utf8.Valid(data) {
		return "", parseErr(f, errors.New("input is not valid UTF-8"))
	}
	return string(data), nil
}
