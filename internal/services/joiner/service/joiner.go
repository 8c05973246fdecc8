// Package service implements the join stage: per-shard multi-way merge of
// one master record with its dependent records into nested JSON documents
package service

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	perr "maudeflow/internal/platform/errors"
	"maudeflow/internal/platform/logger"
	"maudeflow/internal/services/joiner/domain"
	pdom "maudeflow/internal/services/partition/domain"
)

const maxRowSize = 32 * 1024 * 1024

// depIndex is a multi-valued in-memory index for one dependent category:
// key -> rows in file order. Safe to hold fully because co-location bounds
// a shard's dependents to roughly 1/N of the dataset
type depIndex map[uint64][][]string

// joinShard joins one shard's four category files into outPath, one JSON
// document per master row, in master file order. Output is written to a
// temporary name and renamed into place only on success, so a crashed or
// failed job can never be mistaken for a complete one
func joinShard(ctx context.Context, files domain.ShardFiles, outPath string, delim byte) (domain.JoinStats, error) {
	var stats domain.JoinStats
	log := logger.C(ctx)

	deps := map[pdom.Category]depIndex{}
	for c, path := range map[pdom.Category]string{
		pdom.CategoryPatient: files.Patient,
		pdom.CategoryDevice:  files.Device,
		pdom.CategoryText:    files.Text,
	} {
		idx, skipped, err := loadDependents(path, c, delim)
		if err != nil {
			return stats, err
		}
		stats.SkippedRows += skipped
		deps[c] = idx
	}

	mf, err := os.Open(files.Master)
	if err != nil {
		return stats, perr.Wrapf(err, perr.ErrorCodeSchemaIntegrity, "open master shard %s", files.Master)
	}
	defer func() { _ = mf.Close() }()

	tmp := outPath + ".tmp." + uuid.NewString()
	out, err := os.Create(tmp)
	if err != nil {
		return stats, perr.Wrapf(err, perr.ErrorCodeSchemaIntegrity, "create %s", tmp)
	}
	// the rename below makes completion atomic; anything else removes tmp
	committed := false
	defer func() {
		_ = out.Close()
		if !committed {
			_ = os.Remove(tmp)
		}
	}()
	w := bufio.NewWriterSize(out, 256*1024)

	masterSchema := pdom.SchemaFor(pdom.CategoryMaster)
	sc := bufio.NewScanner(mf)
	sc.Buffer(make([]byte, 512*1024), maxRowSize)

	if err := verifyHeader(sc, pdom.CategoryMaster, delim, files.Master); err != nil {
		return stats, err
	}

	var rowNum int64 = 1
	for sc.Scan() {
		rowNum++
		if rowNum%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}

		fields := strings.Split(sc.Text(), string(delim))
		if len(fields) < len(masterSchema) {
			stats.SkippedRows++
			log.Warn().Str("file", files.Master).Int64("row", rowNum).
				Int("fields", len(fields)).Int("schema", len(masterSchema)).
				Msg("skipping master row shorter than schema")
			continue
		}
		key, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			stats.SkippedRows++
			log.Warn().Str("file", files.Master).Int64("row", rowNum).
				Msg("skipping master row with unparsable key")
			continue
		}

		doc := rowObject(masterSchema, fields)
		full := make(map[string]any, len(doc)+3)
		for k, v := range doc {
			full[k] = v
		}
		for _, c := range pdom.Dependents() {
			rows := deps[c][key] // missing key -> nil -> empty collection
			nested := make([]map[string]string, 0, len(rows))
			for _, r := range rows {
				nested = append(nested, rowObject(pdom.SchemaFor(c), r))
			}
			stats.DependentsAttached += int64(len(nested))
			full[domain.NestedField(c)] = nested
		}

		b, err := json.Marshal(full)
		if err != nil {
			return stats, perr.Wrapf(err, perr.ErrorCodeJoinWorker, "marshal document key %d", key)
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			return stats, perr.Wrapf(err, perr.ErrorCodeJoinWorker, "write %s", tmp)
		}
		stats.Documents++
	}
	if err := sc.Err(); err != nil {
		return stats, perr.Wrapf(err, perr.ErrorCodeJoinWorker, "read master shard %s", files.Master)
	}

	if err := w.Flush(); err != nil {
		return stats, perr.Wrapf(err, perr.ErrorCodeJoinWorker, "flush %s", tmp)
	}
	if err := out.Close(); err != nil {
		return stats, perr.Wrapf(err, perr.ErrorCodeJoinWorker, "close %s", tmp)
	}
	if err := os.Rename(tmp, outPath); err != nil {
		return stats, perr.Wrapf(err, perr.ErrorCodeJoinWorker, "commit %s", outPath)
	}
	committed = true
	return stats, nil
}

// loadDependents reads one dependent shard file fully into a key-grouped
// index, preserving file order per key. Rows shorter than the schema are
// skipped and counted; an orphaned key (no master in this shard) simply
// never gets looked up, which drops it from all output
func loadDependents(path string, c pdom.Category, delim byte) (depIndex, int64, error) {
	schema := pdom.SchemaFor(c)
	var skipped int64

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, perr.Wrapf(err, perr.ErrorCodeSchemaIntegrity, "open dependent shard %s", path)
	}
	defer func() { _ = f.Close() }()

	log := logger.Named("joiner")

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 512*1024), maxRowSize)

	if err := verifyHeader(sc, c, delim, path); err != nil {
		return nil, 0, err
	}

	idx := depIndex{}
	var rowNum int64 = 1
	for sc.Scan() {
		rowNum++
		fields := strings.Split(sc.Text(), string(delim))
		if len(fields) < len(schema) {
			skipped++
			log.Warn().Str("file", path).Int64("row", rowNum).
				Int("fields", len(fields)).Int("schema", len(schema)).
				Msg("skipping dependent row shorter than schema")
			continue
		}
		key, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			skipped++
			log.Warn().Str("file", path).Int64("row", rowNum).
				Msg("skipping dependent row with unparsable key")
			continue
		}
		idx[key] = append(idx[key], fields)
	}
	if err := sc.Err(); err != nil {
		return nil, 0, perr.Wrapf(err, perr.ErrorCodeJoinWorker, "read dependent shard %s", path)
	}
	return idx, skipped, nil
}

// verifyHeader consumes the first line and requires it to be the exact
// category header the partition stage wrote
func verifyHeader(sc *bufio.Scanner, c pdom.Category, delim byte, path string) error {
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeSchemaIntegrity, "read header of %s", path)
		}
		return perr.Schemaf("shard file %s is empty, expected %s header", path, c)
	}
	want := pdom.SchemaFor(c).HeaderLine(delim)
	if sc.Text() != want {
		return perr.Schemaf("shard file %s has wrong header for %s", path, c)
	}
	return nil
}

// rowObject names a row's fields per the schema. Fields past the schema
// length are dropped; callers have already rejected short rows
func rowObject(schema pdom.Schema, fields []string) map[string]string {
	obj := make(map[string]string, len(schema))
	for i, name := range schema {
		obj[name] = fields[i]
	}
	return obj
}
