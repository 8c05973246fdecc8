package maude

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"golang.org/x/text/encoding/charmap"

	perr "maudeflow/internal/platform/errors"
	"maudeflow/internal/platform/logger"
)

// Extractor turns downloaded archives into flat UTF-8 text files. The
// release files are ISO-8859-1; everything downstream assumes UTF-8
type Extractor struct {
	log logger.Logger
}

// NewExtractor creates an Extractor
func NewExtractor() *Extractor {
	return &Extractor{log: *logger.Named("maude.extract")}
}

// ExtractDir unzips every archive under inDir into a same-named .txt
// under outDir, transcoding to UTF-8. Archives whose .txt is already
// present with non-zero size are skipped
func (e *Extractor) ExtractDir(ctx context.Context, inDir, outDir string) ([]string, error) {
	zips, err := filepath.Glob(filepath.Join(inDir, "*.zip"))
	if err != nil {
		return nil, perr.Fetchf("list %s: %v", inDir, err)
	}
	sort.Strings(zips)
	if len(zips) == 0 {
		return nil, perr.Fetchf("no archives under %s", inDir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, perr.Fetchf("create %s: %v", outDir, err)
	}

	var out []string
	for _, zp := range zips {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		base := strings.TrimSuffix(filepath.Base(zp), ".zip") + ".txt"
		dest := filepath.Join(outDir, base)
		if fi, err := os.Stat(dest); err == nil && fi.Size() > 0 {
			e.log.Debug().Str("file", base).Msg("already extracted, skipping")
			out = append(out, dest)
			continue
		}
		if err := e.extract(zp, dest); err != nil {
			return nil, err
		}
		out = append(out, dest)
	}
	return out, nil
}

// extract concatenates every entry of one archive into dest, transcoded.
// The release archives hold a single flat file each, but concatenating
// keeps the odd multi-entry archive from silently losing data
func (e *Extractor) extract(zipPath, dest string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return perr.Fetchf("open archive %s: %v", zipPath, err)
	}
	defer func() { _ = zr.Close() }()

	tmp := dest + ".tmp." + uuid.NewString()
	w, err := os.Create(tmp)
	if err != nil {
		return perr.Fetchf("create %s: %v", tmp, err)
	}
	committed := false
	defer func() {
		_ = w.Close()
		if !committed {
			_ = os.Remove(tmp)
		}
	}()

	var total int64
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		n, err := e.transcode(w, entry)
		if err != nil {
			return err
		}
		total += n
	}

	if err := w.Close(); err != nil {
		return perr.Fetchf("close %s: %v", tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return perr.Fetchf("commit %s: %v", dest, err)
	}
	committed = true
	e.log.Info().Str("archive", filepath.Base(zipPath)).Int64("bytes", total).Msg("archive extracted")
	return nil
}

func (e *Extractor) transcode(w io.Writer, entry *zip.File) (int64, error) {
	rc, err := entry.Open()
	if err != nil {
		return 0, perr.Fetchf("open entry %s: %v", entry.Name, err)
	}
	defer func() { _ = rc.Close() }()

	// ISO-8859-1 maps every byte, so the decode cannot fail mid-stream
	n, err := io.Copy(w, charmap.ISO8859_1.NewDecoder().Reader(rc))
	if err != nil {
		return n, perr.Fetchf("extract entry %s: %v", entry.Name, err)
	}
	return n, nil
}
