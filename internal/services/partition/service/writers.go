package service

import (
	"bufio"
	"os"
	"path/filepath"

	perr "maudeflow/internal/platform/errors"
	"maudeflow/internal/services/partition/domain"
)

// shardSet owns the N open shard files for a single category. It is
// constructed once by the partitioner, passed explicitly to the router,
// and closed deterministically on every exit path. Handle sets across
// categories are disjoint, so category workers never share a writer
type shardSet struct {
	category domain.Category
	files    []*os.File
	writers  []*bufio.Writer
	closed   bool
}

// openShardSet creates the N shard files for a category under dir and
// writes the fixed schema header as the first line of each, so even
// shards that receive zero data rows are readable by the join stage
func openShardSet(dir string, c domain.Category, shards int, delim byte) (*shardSet, error) {
	header := domain.SchemaFor(c).HeaderLine(delim)
	s := &shardSet{
		category: c,
		files:    make([]*os.File, 0, shards),
		writers:  make([]*bufio.Writer, 0, shards),
	}
	for i := 0; i < shards; i++ {
		path := filepath.Join(dir, domain.ShardFileName(i, c))
		f, err := os.Create(path)
		if err != nil {
			_ = s.Close()
			return nil, perr.Wrapf(err, perr.ErrorCodeSchemaIntegrity, "create shard file %s", path)
		}
		w := bufio.NewWriterSize(f, 256*1024)
		if _, err := w.WriteString(header + "\n"); err != nil {
			_ = s.Close()
			_ = f.Close()
			return nil, perr.Wrapf(err, perr.ErrorCodeSchemaIntegrity, "write header to %s", path)
		}
		s.files = append(s.files, f)
		s.writers = append(s.writers, w)
	}
	return s, nil
}

// append writes one verbatim row to the shard's writer
func (s *shardSet) append(shard int, row []byte) error {
	w := s.writers[shard]
	if _, err := w.Write(row); err != nil {
		return err
	}
	return w.WriteByte('\n')
}

// Close flushes and closes every handle, returning the first error.
// Safe to call more than once
func (s *shardSet) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var first error
	for _, w := range s.writers {
		if err := w.Flush(); err != nil && first == nil {
			first = err
		}
	}
	for _, f := range s.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return perr.WrapIf(first, perr.ErrorCodeSchemaIntegrity, "close shard set "+string(s.category))
}
