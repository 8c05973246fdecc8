package domain

import "testing"

func TestMatchCategory(t *testing.T) {
	tests := []struct {
		file string
		want Category
		ok   bool
	}{
		{"mdrfoi.txt", CategoryMaster, true},
		{"MDRFOITHRU2023.TXT", CategoryMaster, true},
		{"patient2021.txt", CategoryPatient, true},
		{"foidev1998.txt", CategoryDevice, true},
		{"foitextthru2022.txt", CategoryText, true},
		{"foiclass.txt", "", false},
		{"readme.txt", "", false},
	}
	for _, tt := range tests {
		got, ok := MatchCategory(tt.file)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("MatchCategory(%q) = (%q, %v), want (%q, %v)", tt.file, got, ok, tt.want, tt.ok)
		}
	}
}

func TestIgnored(t *testing.T) {
	ignores := DefaultIgnores()
	tests := []struct {
		file string
		want bool
	}{
		{"foidevproblem.txt", true},
		{"patientadd.txt", true},
		{"mdrfoichange.txt", true},
		{"mdrfoi.txt", false},
		{"foitext2020.txt", false},
	}
	for _, tt := range tests {
		if got := Ignored(tt.file, ignores); got != tt.want {
			t.Fatalf("Ignored(%q) = %v, want %v", tt.file, got, tt.want)
		}
	}
	if Ignored("anything.txt", []string{""}) {
		t.Fatalf("empty ignore pattern must not match everything")
	}
}

func TestSchemasStartWithJoinKey(t *testing.T) {
	for _, c := range Categories() {
		s := SchemaFor(c)
		if len(s) == 0 {
			t.Fatalf("SchemaFor(%s) empty", c)
		}
		if s[0] != KeyColumn {
			t.Fatalf("schema for %s starts with %q, want %q", c, s[0], KeyColumn)
		}
	}
	if SchemaFor(Category("bogus")) != nil {
		t.Fatalf("unknown category must have no schema")
	}
}

func TestSchemaLengths(t *testing.T) {
	want := map[Category]int{
		CategoryMaster:  75,
		CategoryPatient: 5,
		CategoryDevice:  45,
		CategoryText:    6,
	}
	for c, n := range want {
		if got := len(SchemaFor(c)); got != n {
			t.Fatalf("len(SchemaFor(%s)) = %d, want %d", c, got, n)
		}
	}
}

func TestHeaderLine(t *testing.T) {
	got := SchemaFor(CategoryPatient).HeaderLine('|')
	want := "mdr_report_key|patient_sequence_number|date_received|sequence_number_treatment|sequence_number_outcome"
	if got != want {
		t.Fatalf("HeaderLine = %q, want %q", got, want)
	}
}

func TestShardFileName(t *testing.T) {
	if got := ShardFileName(5, CategoryMaster); got != "5.mdrfoi.txt" {
		t.Fatalf("ShardFileName = %q", got)
	}
}

func TestRouteStatsAdd(t *testing.T) {
	a := RouteStats{Routed: 2, SkippedHeaders: 1}
	a.Add(RouteStats{Routed: 3, SkippedBadKey: 4})
	if a.Routed != 5 || a.SkippedHeaders != 1 || a.SkippedBadKey != 4 {
		t.Fatalf("Add = %+v", a)
	}
}
