package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/thoulee21/bedit/internal/format"
)

// importFile reads path in format from, or the format implied by its
// extension when from is empty.
func importFile(ctx context.Context, path, from string) (*format.Result, error) {
	f, err := pickFormat(path, from)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	res, err := registry.Import(ctx, f, file, path)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	logger.Debug("loaded document", "file", path, "format", f, "blocks", len(res.Doc.Children))
	return res, nil
}

func pickFormat(path, name string) (format.Format, error) {
	if name != "" {
		return format.ParseFormat(name)
	}
	return format.FormatForFile(path)
}
