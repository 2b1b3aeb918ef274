// Package parser reads point-by-point match datasets.
package parser

import (
	"crypto/sha256"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pable/go-tennis-mc/internal/model"
)

// ErrMissingColumn is returned when a required header column is absent.
var ErrMissingColumn = errors.New("missing column")

// Required and optional header columns.
const (
	ColServer1    = "server1"
	ColServer2    = "server2"
	ColPBP        = "pbp"
	ColWinner     = "winner"
	ColDate       = "date"
	ColTournament = "tny_name"
	ColScore      = "score"
)

var requiredColumns = []string{ColServer1, ColServer2, ColPBP, ColWinner}

// Result is one parsed dataset.
type Result struct {
	Dataset model.Dataset
	Matches []model.HistoricalMatch
	// Skipped counts rows with an empty player name or point sequence.
	Skipped int
}

// ParseFile hashes and parses the CSV dataset at path.
func ParseFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	// Hash file for idempotency key.
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("hash dataset: %w", err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek dataset: %w", err)
	}

	res, err := Parse(f)
	if err != nil {
		return nil, err
	}
	res.Dataset = model.Dataset{
		Hash:       fmt.Sprintf("%x", h.Sum(nil)),
		Path:       path,
		Rows:       len(res.Matches),
		IngestedAt: time.Now().UTC().Format(time.RFC3339),
	}
	return res, nil
}

// Parse reads a CSV dataset with a header row. Columns are matched by name,
// so extra columns and any column order are accepted.
func Parse(r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("read header: %w: %s", ErrMissingColumn, strings.Join(requiredColumns, ", "))
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("read header: %w: %s", ErrMissingColumn, name)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	res := &Result{}
	for row := 0; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}

		m := model.HistoricalMatch{
			Row:        row,
			Date:       field(rec, ColDate),
			Tournament: field(rec, ColTournament),
			Player1:    field(rec, ColServer1),
			Player2:    field(rec, ColServer2),
			PBP:        field(rec, ColPBP),
			Score:      field(rec, ColScore),
			Winner:     parseWinner(field(rec, ColWinner)),
		}
		if m.Player1 == "" || m.Player2 == "" || m.PBP == "" {
			res.Skipped++
			continue
		}
		res.Matches = append(res.Matches, m)
	}
	return res, nil
}

// parseWinner maps "1" and "2" to a player; anything else is unknown.
func parseWinner(s string) model.PlayerIndex {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	switch n {
	case 1:
		return model.Player1
	case 2:
		return model.Player2
	}
	return 0
}

// SplitGames splits a point-by-point string into per-game chunks. Set (';'),
// tiebreak ('.') and tiebreak serve change ('/') delimiters are treated as
// game boundaries, so tiebreak points come out as one- or two-token chunks.
func SplitGames(pbp string) []string {
	pbp = strings.NewReplacer(";", ":", ".", ":", "/", ":").Replace(pbp)
	return strings.Split(pbp, ":")
}
