// Package maude acquires the raw MAUDE release files: scrape the FDA
// device download page for zip archives, pull them down, and extract
// them into UTF-8 text files the partition stage can read
package maude

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	perr "maudeflow/internal/platform/errors"
	"maudeflow/internal/platform/logger"
)

const (
	downloadPageDefault = "https://www.fda.gov/MedicalDevices/DeviceRegulationandGuidance/PostmarketRequirements/ReportingAdverseEvents/ucm127891.htm"
	defaultTimeout      = 5 * time.Minute
	defaultUA           = "maudeflow-pipeline"
)

var zipHrefRe = regexp.MustCompile(`(?i)href="([^"]*\.zip)"`)

// Options configures the Fetcher
type Options struct {
	PageURL   string
	OutDir    string
	UserAgent string
	Timeout   time.Duration
}

// Fetcher downloads every zip linked from the FDA download page.
// Files already on disk with non-zero size are not fetched again, so a
// rerun after a partial failure only pulls what is missing
type Fetcher struct {
	http *http.Client
	opts Options
	log  logger.Logger
}

// NewFetcher creates a Fetcher with sane defaults
func NewFetcher(o Options) *Fetcher {
	if o.PageURL == "" {
		o.PageURL = downloadPageDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return &Fetcher{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("maude.fetch"),
	}
}

// Run scrapes the download page and fetches each linked archive into
// OutDir. Returns the local path of every archive, downloaded or cached
func (f *Fetcher) Run(ctx context.Context) ([]string, error) {
	urls, err := f.scrape(ctx)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, perr.Fetchf("no zip links on %s", f.opts.PageURL)
	}
	if err := os.MkdirAll(f.opts.OutDir, 0o755); err != nil {
		return nil, perr.Fetchf("create %s: %v", f.opts.OutDir, err)
	}

	var out []string
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dest := filepath.Join(f.opts.OutDir, path.Base(u))
		if fi, err := os.Stat(dest); err == nil && fi.Size() > 0 {
			f.log.Debug().Str("file", filepath.Base(dest)).Msg("archive already on disk, skipping")
			out = append(out, dest)
			continue
		}
		if err := f.download(ctx, u, dest); err != nil {
			return nil, err
		}
		out = append(out, dest)
	}
	return out, nil
}

// scrape pulls the download page and returns the absolute URL of every
// zip link on it, in page order, deduplicated
func (f *Fetcher) scrape(ctx context.Context) ([]string, error) {
	body, err := f.get(ctx, f.opts.PageURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	b, err := io.ReadAll(io.LimitReader(body, 8<<20))
	if err != nil {
		return nil, perr.Fetchf("read %s: %v", f.opts.PageURL, err)
	}

	base, err := url.Parse(f.opts.PageURL)
	if err != nil {
		return nil, perr.Fetchf("parse page url: %v", err)
	}

	seen := map[string]bool{}
	var urls []string
	for _, m := range zipHrefRe.FindAllStringSubmatch(string(b), -1) {
		ref, err := url.Parse(m[1])
		if err != nil {
			f.log.Warn().Str("href", m[1]).Msg("unparsable zip href on download page")
			continue
		}
		abs := base.ResolveReference(ref).String()
		if !seen[abs] {
			seen[abs] = true
			urls = append(urls, abs)
		}
	}
	return urls, nil
}

// download streams one archive to a temp file and renames it into place
func (f *Fetcher) download(ctx context.Context, u, dest string) error {
	body, err := f.get(ctx, u)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

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

	n, err := io.Copy(w, body)
	if err != nil {
		return perr.Fetchf("download %s: %v", u, err)
	}
	if err := w.Close(); err != nil {
		return perr.Fetchf("close %s: %v", tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return perr.Fetchf("commit %s: %v", dest, err)
	}
	committed = true
	f.log.Info().Str("file", filepath.Base(dest)).Int64("bytes", n).Msg("archive downloaded")
	return nil
}

func (f *Fetcher) get(ctx context.Context, u string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, perr.Fetchf("new request %s: %v", u, err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, perr.Unavailablef("get %s: %v", u, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, perr.Fetchf("get %s returned %d", u, resp.StatusCode)
	}
	return resp.Body, nil
}
