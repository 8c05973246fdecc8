package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	kit "maudeflow/internal/platform/testkit"
	"maudeflow/internal/services/joiner/domain"
	pdom "maudeflow/internal/services/partition/domain"
)

// row builds a full-width row for a category with the given key; remaining
// fields get positional filler so schema-length checks pass
func row(c pdom.Category, key string, tag string) string {
	schema := pdom.SchemaFor(c)
	fields := make([]string, len(schema))
	fields[0] = key
	for i := 1; i < len(fields); i++ {
		fields[i] = fmt.Sprintf("%s%d", tag, i)
	}
	return strings.Join(fields, "|")
}

// writeShard writes a shard file with its header and the given rows
func writeShard(t *testing.T, dir string, shard int, c pdom.Category, rows ...string) {
	t.Helper()
	lines := append([]string{pdom.SchemaFor(c).HeaderLine('|')}, rows...)
	kit.WriteFile(t, filepath.Join(dir, pdom.ShardFileName(shard, c)), strings.Join(lines, "\n")+"\n")
}

func readDocs(t *testing.T, path string) []map[string]any {
	t.Helper()
	var docs []map[string]any
	for _, line := range kit.ReadLines(t, path) {
		var d map[string]any
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			t.Fatalf("bad JSON line %q: %v", line, err)
		}
		docs = append(docs, d)
	}
	return docs
}

func nested(t *testing.T, doc map[string]any, field string) []any {
	t.Helper()
	v, ok := doc[field]
	if !ok {
		t.Fatalf("document missing %q collection", field)
	}
	arr, ok := v.([]any)
	if !ok {
		t.Fatalf("%q is %T, want array", field, v)
	}
	return arr
}

func TestJoinShard_MasterDrivenJoin(t *testing.T) {
	dir := t.TempDir()

	// shard 0 of N=2: master key 4; patient rows 4, 4 and orphan 7
	writeShard(t, dir, 0, pdom.CategoryMaster, row(pdom.CategoryMaster, "4", "m"))
	writeShard(t, dir, 0, pdom.CategoryPatient,
		row(pdom.CategoryPatient, "4", "p"),
		row(pdom.CategoryPatient, "4", "q"),
		row(pdom.CategoryPatient, "7", "orphan"),
	)
	writeShard(t, dir, 0, pdom.CategoryDevice)
	writeShard(t, dir, 0, pdom.CategoryText)

	out := filepath.Join(dir, "0.maude.json")
	stats, err := joinShard(context.Background(), domain.ShardFilesFor(dir, 0), out, '|')
	if err != nil {
		t.Fatalf("joinShard: %v", err)
	}
	if stats.Documents != 1 || stats.DependentsAttached != 2 {
		t.Fatalf("stats = %+v, want 1 document with 2 dependents", stats)
	}

	docs := readDocs(t, out)
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	doc := docs[0]
	if doc["mdr_report_key"] != "4" {
		t.Fatalf("mdr_report_key = %v", doc["mdr_report_key"])
	}
	if doc["event_key"] != "m1" {
		t.Fatalf("master field not mapped: event_key = %v", doc["event_key"])
	}

	patients := nested(t, doc, domain.FieldPatient)
	if len(patients) != 2 {
		t.Fatalf("patient collection = %v, want 2 entries", patients)
	}
	// file order preserved within the key's rows
	first := patients[0].(map[string]any)
	if first["patient_sequence_number"] != "p1" {
		t.Fatalf("patient[0] = %v", first)
	}

	// the orphaned key 7 contributes to no document
	raw := kit.ReadLines(t, out)
	for _, line := range raw {
		if strings.Contains(line, "orphan") {
			t.Fatalf("orphaned dependent leaked into output: %s", line)
		}
	}

	// empty collections serialize as arrays, not null
	if len(nested(t, doc, domain.FieldDevice)) != 0 {
		t.Fatalf("device collection should be empty")
	}
	if len(nested(t, doc, domain.FieldText)) != 0 {
		t.Fatalf("mdr_text collection should be empty")
	}
	for _, field := range []string{domain.FieldDevice, domain.FieldText} {
		if strings.Contains(raw[0], `"`+field+`":null`) {
			t.Fatalf("%s serialized as null: %s", field, raw[0])
		}
	}
}

func TestJoinShard_SecondShardOfScenario(t *testing.T) {
	dir := t.TempDir()

	// shard 1 of N=2: master key 5; one device row for 5
	writeShard(t, dir, 1, pdom.CategoryMaster, row(pdom.CategoryMaster, "5", "m"))
	writeShard(t, dir, 1, pdom.CategoryPatient)
	writeShard(t, dir, 1, pdom.CategoryDevice, row(pdom.CategoryDevice, "5", "d"))
	writeShard(t, dir, 1, pdom.CategoryText)

	out := filepath.Join(dir, "1.maude.json")
	stats, err := joinShard(context.Background(), domain.ShardFilesFor(dir, 1), out, '|')
	if err != nil {
		t.Fatalf("joinShard: %v", err)
	}
	if stats.Documents != 1 || stats.DependentsAttached != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	doc := readDocs(t, out)[0]
	if doc["mdr_report_key"] != "5" {
		t.Fatalf("mdr_report_key = %v", doc["mdr_report_key"])
	}
	if n := len(nested(t, doc, domain.FieldDevice)); n != 1 {
		t.Fatalf("device entries = %d, want 1", n)
	}
	if n := len(nested(t, doc, domain.FieldPatient)); n != 0 {
		t.Fatalf("patient entries = %d, want 0", n)
	}
}

func TestJoinShard_DocumentOrderFollowsMasterOrder(t *testing.T) {
	dir := t.TempDir()

	writeShard(t, dir, 0, pdom.CategoryMaster,
		row(pdom.CategoryMaster, "12", "a"),
		row(pdom.CategoryMaster, "4", "b"),
		row(pdom.CategoryMaster, "8", "c"),
	)
	writeShard(t, dir, 0, pdom.CategoryPatient)
	writeShard(t, dir, 0, pdom.CategoryDevice)
	writeShard(t, dir, 0, pdom.CategoryText)

	out := filepath.Join(dir, "0.maude.json")
	if _, err := joinShard(context.Background(), domain.ShardFilesFor(dir, 0), out, '|'); err != nil {
		t.Fatalf("joinShard: %v", err)
	}

	docs := readDocs(t, out)
	want := []string{"12", "4", "8"}
	for i, k := range want {
		if docs[i]["mdr_report_key"] != k {
			t.Fatalf("doc[%d] key = %v, want %s", i, docs[i]["mdr_report_key"], k)
		}
	}
}

func TestJoinShard_Idempotent(t *testing.T) {
	dir := t.TempDir()

	writeShard(t, dir, 0, pdom.CategoryMaster,
		row(pdom.CategoryMaster, "4", "m"),
		row(pdom.CategoryMaster, "8", "n"),
	)
	writeShard(t, dir, 0, pdom.CategoryPatient, row(pdom.CategoryPatient, "8", "p"))
	writeShard(t, dir, 0, pdom.CategoryDevice, row(pdom.CategoryDevice, "4", "d"))
	writeShard(t, dir, 0, pdom.CategoryText)

	files := domain.ShardFilesFor(dir, 0)
	out1 := filepath.Join(dir, "a.json")
	out2 := filepath.Join(dir, "b.json")
	if _, err := joinShard(context.Background(), files, out1, '|'); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := joinShard(context.Background(), files, out2, '|'); err != nil {
		t.Fatalf("second run: %v", err)
	}

	b1, _ := os.ReadFile(out1)
	b2, _ := os.ReadFile(out2)
	if string(b1) != string(b2) {
		t.Fatalf("join output is not byte-identical across runs")
	}
}

func TestJoinShard_SkipsShortRows(t *testing.T) {
	dir := t.TempDir()

	writeShard(t, dir, 0, pdom.CategoryMaster,
		"4|too|short",
		row(pdom.CategoryMaster, "8", "m"),
	)
	writeShard(t, dir, 0, pdom.CategoryPatient, "8|short")
	writeShard(t, dir, 0, pdom.CategoryDevice)
	writeShard(t, dir, 0, pdom.CategoryText)

	out := filepath.Join(dir, "0.maude.json")
	stats, err := joinShard(context.Background(), domain.ShardFilesFor(dir, 0), out, '|')
	if err != nil {
		t.Fatalf("short rows must not be fatal: %v", err)
	}
	if stats.Documents != 1 || stats.SkippedRows != 2 {
		t.Fatalf("stats = %+v, want 1 doc and 2 skipped rows", stats)
	}
}

func TestJoinShard_MissingHeaderIsFatal(t *testing.T) {
	dir := t.TempDir()

	// master shard file without its header line
	kit.WriteFile(t, filepath.Join(dir, pdom.ShardFileName(0, pdom.CategoryMaster)),
		row(pdom.CategoryMaster, "4", "m")+"\n")
	writeShard(t, dir, 0, pdom.CategoryPatient)
	writeShard(t, dir, 0, pdom.CategoryDevice)
	writeShard(t, dir, 0, pdom.CategoryText)

	out := filepath.Join(dir, "0.maude.json")
	_, err := joinShard(context.Background(), domain.ShardFilesFor(dir, 0), out, '|')
	if err == nil {
		t.Fatalf("expected schema integrity failure")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("failed join must not leave an output file")
	}
}

func TestJoinShard_MissingFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "0.maude.json")
	_, err := joinShard(context.Background(), domain.ShardFilesFor(dir, 0), out, '|')
	if err == nil {
		t.Fatalf("expected failure for missing shard files")
	}
}
