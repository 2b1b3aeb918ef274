package parser

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/pable/go-tennis-mc/internal/model"
)

const sampleCSV = `pbp_id,date,tny_name,server1,server2,winner,pbp,score
1,2017-01-02,Brisbane,Alice,Bob,1,"SSSS;RRRR.SR/RS",6-0
2,2017-01-03,Brisbane,Carol,Dan,2,SRSRSS:RRRR,
3,2017-01-04,Brisbane,,Dan,2,SSSS,
4,2017-01-05,Sydney,Bob,Carol,x,SSSS:SSSS,6-4
`

func TestParse(t *testing.T) {
	res, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Matches) != 3 {
		t.Fatalf("matches = %d, want 3", len(res.Matches))
	}
	if res.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", res.Skipped)
	}

	first := res.Matches[0]
	want := model.HistoricalMatch{
		Row: 0, Date: "2017-01-02", Tournament: "Brisbane",
		Player1: "Alice", Player2: "Bob", PBP: "SSSS;RRRR.SR/RS", Score: "6-0",
		Winner: model.Player1,
	}
	if first != want {
		t.Errorf("first row = %+v, want %+v", first, want)
	}
	if res.Matches[1].Winner != model.Player2 {
		t.Errorf("row 1 winner = %d, want 2", res.Matches[1].Winner)
	}
	if res.Matches[2].Row != 3 || res.Matches[2].Winner != 0 {
		t.Errorf("row 3 = %+v, want row index 3 and unknown winner", res.Matches[2])
	}
}

func TestParseMissingColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("server1,server2,winner\nA,B,1\n"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("err = %v, want ErrMissingColumn", err)
	}
	if !strings.Contains(err.Error(), "pbp") {
		t.Errorf("err = %q, want it to name the pbp column", err)
	}

	_, err = Parse(strings.NewReader(""))
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("empty input: err = %v, want ErrMissingColumn", err)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matches.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o600); err != nil {
		t.Fatal(err)
	}

	a, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(a.Dataset.Hash) != 64 {
		t.Errorf("hash = %q, want 64 hex chars", a.Dataset.Hash)
	}
	if a.Dataset.Rows != 3 || a.Dataset.Path != path {
		t.Errorf("dataset = %+v", a.Dataset)
	}

	b, err := ParseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if a.Dataset.Hash != b.Dataset.Hash {
		t.Errorf("hash not stable: %s vs %s", a.Dataset.Hash, b.Dataset.Hash)
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSplitGames(t *testing.T) {
	tests := []struct {
		pbp  string
		want []string
	}{
		{"SSSS", []string{"SSSS"}},
		{"SSSS;RRRR", []string{"SSSS", "RRRR"}},
		{"SSSS:RRRR", []string{"SSSS", "RRRR"}},
		{"SR/RS.SS", []string{"SR", "RS", "SS"}},
		{"SSSS;RRRR.SR/RS", []string{"SSSS", "RRRR", "SR", "RS"}},
	}
	for _, tt := range tests {
		if got := SplitGames(tt.pbp); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitGames(%q) = %q, want %q", tt.pbp, got, tt.want)
		}
	}
}
