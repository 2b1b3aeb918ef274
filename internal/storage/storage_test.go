package storage

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pable/go-tennis-mc/internal/automaton"
	"github.com/pable/go-tennis-mc/internal/model"
	"github.com/pable/go-tennis-mc/internal/player"
)

func openMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDatasetInsertAndExists(t *testing.T) {
	db := openMemDB(t)

	d := model.Dataset{Hash: "abc123", Path: "matches.csv", Rows: 2, IngestedAt: "2025-01-01T00:00:00Z"}
	matches := []model.HistoricalMatch{
		{Row: 0, Player1: "Alice", Player2: "Bob", PBP: "SSSS", Winner: model.Player1},
		{Row: 1, Player1: "Bob", Player2: "Carol", PBP: "RRRR", Winner: model.Player2},
	}
	if err := db.InsertDataset(d, matches); err != nil {
		t.Fatalf("InsertDataset: %v", err)
	}

	exists, err := db.DatasetExists("abc123")
	if err != nil {
		t.Fatalf("DatasetExists: %v", err)
	}
	if !exists {
		t.Error("expected dataset to exist after insert")
	}

	exists2, _ := db.DatasetExists("nonexistent")
	if exists2 {
		t.Error("expected non-existent dataset to not exist")
	}

	list, err := db.ListDatasets()
	if err != nil {
		t.Fatalf("ListDatasets: %v", err)
	}
	if len(list) != 1 || list[0] != d {
		t.Errorf("ListDatasets = %+v, want [%+v]", list, d)
	}
}

func TestSaveAndLoadPlayers(t *testing.T) {
	db := openMemDB(t)

	alice := player.New("Alice")
	alice.Ingest("SSSS", model.Serve)
	alice.Ingest("SRSRSR", model.Receive)
	bob := player.New("Bob")
	bob.Ingest("RRRR", model.Serve)

	if err := db.SavePlayers([]*player.Model{alice, bob}); err != nil {
		t.Fatalf("SavePlayers: %v", err)
	}

	got, err := db.LoadPlayer("Alice", zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadPlayer: %v", err)
	}
	if got.Count(model.Serve, 6, automaton.Won) != 1 {
		t.Errorf("serve 40-0 -> W = %d, want 1", got.Count(model.Serve, 6, automaton.Won))
	}
	if got.Observations(model.Receive) != 6 {
		t.Errorf("receive observations = %d, want 6", got.Observations(model.Receive))
	}
	p, ok := got.AggregateWinProbability(model.Receive)
	if !ok || p != 0.5 {
		t.Errorf("receive p = %v, %v; want 0.5, true", p, ok)
	}

	_, err = db.LoadPlayer("Nobody", zerolog.Nop())
	if !errors.Is(err, player.ErrPlayerNotFound) {
		t.Errorf("LoadPlayer(Nobody) err = %v, want ErrPlayerNotFound", err)
	}
}

func TestSavePlayersReplacesCounts(t *testing.T) {
	db := openMemDB(t)

	m := player.New("Alice")
	m.Ingest("SSSS", model.Serve)
	if err := db.SavePlayers([]*player.Model{m}); err != nil {
		t.Fatalf("SavePlayers: %v", err)
	}
	m.Ingest("SSSS", model.Serve)
	if err := db.SavePlayers([]*player.Model{m}); err != nil {
		t.Fatalf("SavePlayers again: %v", err)
	}

	got, err := db.LoadPlayer("Alice", zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadPlayer: %v", err)
	}
	if n := got.Observations(model.Serve); n != 8 {
		t.Errorf("serve observations = %d, want 8", n)
	}
}

func TestLoadRegistryAndListPlayers(t *testing.T) {
	db := openMemDB(t)

	var models []*player.Model
	for _, name := range []string{"Carol", "Alice", "Bob"} {
		m := player.New(name)
		m.Ingest("SSRS", model.Serve)
		models = append(models, m)
	}
	// A player with no counts is still listed.
	models = append(models, player.New("Dan"))
	if err := db.SavePlayers(models); err != nil {
		t.Fatalf("SavePlayers: %v", err)
	}

	reg, err := db.LoadRegistry(zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if reg.Len() != 4 {
		t.Errorf("registry size = %d, want 4", reg.Len())
	}

	list, err := db.ListPlayers()
	if err != nil {
		t.Fatalf("ListPlayers: %v", err)
	}
	if len(list) != 4 || list[0].Name != "Alice" || list[3].Name != "Dan" {
		t.Fatalf("ListPlayers = %+v", list)
	}
	if list[0].ServePoints != 4 || list[0].ServeWinPct != 75 || list[0].ReceiveWinPct != -1 {
		t.Errorf("Alice summary = %+v", list[0])
	}
	if list[3].ServeWinPct != -1 {
		t.Errorf("Dan serve pct = %v, want -1", list[3].ServeWinPct)
	}
}

func TestRunsAndPredictions(t *testing.T) {
	db := openMemDB(t)

	run := model.RunSummary{
		RunID: "run-1234", Dataset: "abc123", Format: model.FormatTour,
		CreatedAt: "2025-01-01T00:00:00Z", Evaluated: 2, Correct: 1, Skipped: 1,
	}
	if err := db.InsertRun(run); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}

	preds := []model.Prediction{
		{RunID: "run-1234", Row: 1, Player1: "Bob", Player2: "Carol", Format: model.FormatTour,
			P: 0.3, HalfWidth: 0.04, Trials: 200, Converged: true, Predicted: model.Player2, Actual: model.Player1},
		{RunID: "run-1234", Row: 0, Player1: "Alice", Player2: "Bob", Format: model.FormatTour,
			P: 0.9, HalfWidth: 0.05, Trials: 31, Converged: true, Predicted: model.Player1, Actual: model.Player1},
		{RunID: "run-1234", Row: 2, Player1: "Alice", Player2: "Dan", Format: model.FormatTour,
			Err: "insufficient data"},
	}
	if err := db.InsertPredictions(preds); err != nil {
		t.Fatalf("InsertPredictions: %v", err)
	}

	got, err := db.GetPredictions("run-1234")
	if err != nil {
		t.Fatalf("GetPredictions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 predictions, got %d", len(got))
	}
	// Ordered by row.
	if got[0] != preds[1] || got[1] != preds[0] || got[2] != preds[2] {
		t.Errorf("GetPredictions = %+v", got)
	}
	if !got[0].Correct() || got[1].Correct() || got[2].Correct() {
		t.Error("unexpected Correct() results")
	}

	r, err := db.GetRunByPrefix("run-")
	if err != nil {
		t.Fatalf("GetRunByPrefix: %v", err)
	}
	if r == nil || *r != run {
		t.Errorf("GetRunByPrefix = %+v, want %+v", r, run)
	}
	missing, err := db.GetRunByPrefix("zzz")
	if err != nil || missing != nil {
		t.Errorf("GetRunByPrefix(zzz) = %v, %v; want nil, nil", missing, err)
	}

	runs, err := db.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].Accuracy() != 0.5 {
		t.Errorf("ListRuns = %+v", runs)
	}
}

func TestPredictionsRequireRun(t *testing.T) {
	db := openMemDB(t)

	err := db.InsertPredictions([]model.Prediction{{RunID: "missing", Player1: "A", Player2: "B"}})
	if err == nil {
		t.Error("expected foreign key violation for unknown run")
	}
}

func TestGetDBOverview(t *testing.T) {
	db := openMemDB(t)

	ov, err := db.GetDBOverview()
	if err != nil {
		t.Fatalf("GetDBOverview on empty db: %v", err)
	}
	if ov != (model.Overview{}) {
		t.Errorf("empty overview = %+v", ov)
	}

	db.InsertDataset(model.Dataset{Hash: "h1", Path: "a.csv", Rows: 1, IngestedAt: "2025-01-01"},
		[]model.HistoricalMatch{{Row: 0, Player1: "Alice", Player2: "Bob", PBP: "SSSS"}})
	m := player.New("Alice")
	m.Ingest("SSSS", model.Serve)
	db.SavePlayers([]*player.Model{m, player.New("Bob")})

	ov, err = db.GetDBOverview()
	if err != nil {
		t.Fatalf("GetDBOverview: %v", err)
	}
	want := model.Overview{Players: 2, Datasets: 1, Matches: 1, Transitions: 4}
	if ov != want {
		t.Errorf("overview = %+v, want %+v", ov, want)
	}
}

func TestQueryRaw(t *testing.T) {
	db := openMemDB(t)

	m := player.New("Alice")
	m.Ingest("SSSS", model.Serve)
	db.SavePlayers([]*player.Model{m})

	cols, rows, err := db.QueryRaw("SELECT player, role, SUM(count) AS points, NULL AS nothing FROM transition_counts GROUP BY player, role")
	if err != nil {
		t.Fatalf("QueryRaw: %v", err)
	}
	if len(cols) != 4 || cols[2] != "points" {
		t.Errorf("cols = %v", cols)
	}
	if len(rows) != 1 || rows[0][0] != "Alice" || rows[0][1] != "serve" || rows[0][2] != "4" || rows[0][3] != "NULL" {
		t.Errorf("rows = %v", rows)
	}

	if _, _, err := db.QueryRaw("SELECT * FROM nope"); err == nil {
		t.Error("expected error for unknown table")
	}
}

// failInserts makes every insert into table abort until the returned func is
// called.
func failInserts(t *testing.T, db *DB, table string) (restore func()) {
	t.Helper()
	trigger := "fail_" + table
	if _, err := db.conn.Exec(`CREATE TRIGGER ` + trigger + ` BEFORE INSERT ON ` + table + `
		BEGIN SELECT RAISE(ABORT, 'disk full'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}
	return func() {
		if _, err := db.conn.Exec("DROP TRIGGER " + trigger); err != nil {
			t.Fatalf("drop trigger: %v", err)
		}
	}
}

func TestIngestDatasetIsAtomic(t *testing.T) {
	db := openMemDB(t)

	d := model.Dataset{Hash: "h1", Path: "a.csv", Rows: 1, IngestedAt: "2025-01-01T00:00:00Z"}
	matches := []model.HistoricalMatch{{Row: 0, Player1: "Alice", Player2: "Bob", PBP: "SSSS", Winner: model.Player1}}
	ingest := func() error {
		reg, err := db.LoadRegistry(zerolog.Nop())
		if err != nil {
			t.Fatalf("LoadRegistry: %v", err)
		}
		reg.GetOrCreate("Alice").Ingest("SSSS", model.Serve)
		reg.GetOrCreate("Bob").Ingest("SSSS", model.Receive)
		return db.IngestDataset(d, matches, reg.Models())
	}

	restore := failInserts(t, db, "datasets")
	if err := ingest(); err == nil {
		t.Fatal("expected ingest to fail while dataset inserts abort")
	}
	restore()

	if exists, _ := db.DatasetExists("h1"); exists {
		t.Error("dataset recorded after failed ingest")
	}
	ov, err := db.GetDBOverview()
	if err != nil {
		t.Fatalf("GetDBOverview: %v", err)
	}
	if ov.Players != 0 || ov.Transitions != 0 || ov.Matches != 0 {
		t.Errorf("failed ingest left rows behind: %+v", ov)
	}

	// A retry counts every game exactly once.
	if err := ingest(); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if exists, _ := db.DatasetExists("h1"); !exists {
		t.Error("dataset missing after retry")
	}
	alice, err := db.LoadPlayer("Alice", zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadPlayer: %v", err)
	}
	if got := alice.Count(model.Serve, automaton.Start, 1); got != 1 {
		t.Errorf("alice serve 0-0 -> 15-0 = %d after retry, want 1", got)
	}
}

func TestSaveRunIsAtomic(t *testing.T) {
	db := openMemDB(t)

	run := model.RunSummary{RunID: "run-1", Dataset: "h1", Format: model.FormatTour, CreatedAt: "2025-01-01T00:00:00Z", Evaluated: 1}
	preds := []model.Prediction{{RunID: "run-1", Row: 0, Player1: "Alice", Player2: "Bob", Format: model.FormatTour,
		P: 1, Trials: 31, Converged: true, Predicted: model.Player1, Actual: model.Player1}}

	restore := failInserts(t, db, "predictions")
	if err := db.SaveRun(run, preds); err == nil {
		t.Fatal("expected SaveRun to fail while prediction inserts abort")
	}
	restore()

	runs, err := db.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("run recorded without its predictions: %+v", runs)
	}

	if err := db.SaveRun(run, preds); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	got, err := db.GetPredictions("run-1")
	if err != nil {
		t.Fatalf("GetPredictions: %v", err)
	}
	if len(got) != 1 || got[0] != preds[0] {
		t.Errorf("GetPredictions = %+v", got)
	}
}
