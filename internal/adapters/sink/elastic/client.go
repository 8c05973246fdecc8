// Package elastic speaks the Elasticsearch REST surface the load stage
// needs: NDJSON bulk indexing and alias swaps. No client library, just
// the two endpoints
package elastic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	perr "maudeflow/internal/platform/errors"
	"maudeflow/internal/platform/logger"
)

const (
	baseURLDefault = "http://localhost:9200"
	defaultTimeout = 60 * time.Second
	defaultBatch   = 2000

	maxLineSize = 32 * 1024 * 1024
)

// Options configures the Client
type Options struct {
	BaseURL string
	Timeout time.Duration

	// Documents per bulk request
	BatchSize int
}

// Client posts bulk bodies and alias actions to one cluster
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
}

// New creates a Client with sane defaults
func New(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatch
	}
	return &Client{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("elastic"),
	}
}

// keyed pulls the document id out of a joined document line
type keyed struct {
	Key string `json:"mdr_report_key"`
}

// BulkFile indexes one JSON-line file. Each document's _id is its
// mdr_report_key, so re-loading the same file overwrites rather than
// duplicates. Returns the number of documents indexed
func (c *Client) BulkFile(ctx context.Context, index, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, perr.Sinkf("open %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()

	var (
		total int64
		body  bytes.Buffer
		n     int
	)
	flush := func() error {
		if n == 0 {
			return nil
		}
		if err := c.bulk(ctx, &body); err != nil {
			return err
		}
		total += int64(n)
		body.Reset()
		n = 0
		return nil
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 512*1024), maxLineSize)
	for sc.Scan() {
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var k keyed
		if err := json.Unmarshal(line, &k); err != nil || k.Key == "" {
			return total, perr.Sinkf("document in %s has no mdr_report_key", path)
		}
		fmt.Fprintf(&body, `{"index":{"_index":%q,"_id":%q}}`+"\n", index, k.Key)
		body.Write(line)
		body.WriteByte('\n')
		n++
		if n >= c.opts.BatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return total, perr.Sinkf("read %s: %v", path, err)
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// bulkResponse is the subset of the _bulk reply we care about
type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

func (c *Client) bulk(ctx context.Context, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/_bulk", body)
	if err != nil {
		return perr.Sinkf("bulk request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-ndjson")

	resp, err := c.http.Do(req)
	if err != nil {
		return perr.Unavailablef("bulk post: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return perr.Sinkf("bulk returned %d: %s", resp.StatusCode, string(b))
	}

	var br bulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return perr.Sinkf("decode bulk response: %v", err)
	}
	if !br.Errors {
		return nil
	}
	for _, item := range br.Items {
		for op, res := range item {
			if res.Error != nil {
				return perr.Sinkf("bulk %s failed: %s: %s", op, res.Error.Type, res.Error.Reason)
			}
		}
	}
	return perr.Sinkf("bulk reported errors")
}

// SwapAlias repoints alias at index, removing it from every other index
// in one atomic action set. A cluster that has never seen the alias
// rejects the remove, so that case retries with the add alone
func (c *Client) SwapAlias(ctx context.Context, alias, index string) error {
	full := map[string]any{"actions": []map[string]any{
		{"remove": map[string]any{"index": "*", "alias": alias}},
		{"add": map[string]any{"index": index, "alias": alias}},
	}}
	addOnly := map[string]any{"actions": []map[string]any{
		{"add": map[string]any{"index": index, "alias": alias}},
	}}

	status, err := c.aliases(ctx, full)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		c.log.Debug().Str("alias", alias).Msg("alias not present yet, adding without remove")
		status, err = c.aliases(ctx, addOnly)
		if err != nil {
			return err
		}
	}
	if status >= 300 {
		return perr.Sinkf("alias swap returned %d", status)
	}
	return nil
}

func (c *Client) aliases(ctx context.Context, actions map[string]any) (int, error) {
	b, err := json.Marshal(actions)
	if err != nil {
		return 0, perr.Sinkf("marshal alias actions: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/_aliases", bytes.NewReader(b))
	if err != nil {
		return 0, perr.Sinkf("alias request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, perr.Unavailablef("alias post: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
