package batch

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/FocuswithJustin/formations/core/formation"
	"github.com/FocuswithJustin/formations/core/lexicon"
	"github.com/FocuswithJustin/formations/core/render"
	"github.com/FocuswithJustin/formations/internal/fileutil"
	"github.com/FocuswithJustin/formations/internal/logging"
	"github.com/FocuswithJustin/formations/internal/store"
)

// Export writes one "word<TAB>number<TAB>display" line per stored formation
// to w, in word id then formation number order, and returns the line count.
// A formation that cannot be rendered aborts the export.
func Export(ctx context.Context, st *store.Store, w io.Writer) (int, error) {
	n := 0
	line := make([]byte, 0, 128)
	err := st.EachFormation(ctx, func(base lexicon.Word, f formation.Resolved) error {
		display, err := render.Display(base.Letters, f)
		if err != nil {
			return err
		}
		line = line[:0]
		line = append(line, base.Letters...)
		line = append(line, '\t')
		line = strconv.AppendInt(line, int64(f.Number), 10)
		line = append(line, '\t')
		line = append(line, display...)
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		n++
		return nil
	})
	return n, err
}

// ExportFile exports to path, compressing when it ends in .xz. The file
// only appears once the export succeeded.
func ExportFile(ctx context.Context, st *store.Store, path string) (int, error) {
	f, err := fileutil.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := Export(ctx, st, f)
	if err != nil {
		f.Abort()
		return n, err
	}
	if err := f.Close(); err != nil {
		return n, err
	}
	logging.InfoContext(ctx, "export written", "path", path, "formations", n)
	return n, nil
}
