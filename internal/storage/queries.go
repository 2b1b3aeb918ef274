package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pable/go-tennis-mc/internal/automaton"
	"github.com/pable/go-tennis-mc/internal/model"
	"github.com/pable/go-tennis-mc/internal/player"
)

// DatasetExists returns true if a dataset with the given hash was already ingested.
func (db *DB) DatasetExists(hash string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(1) FROM datasets WHERE hash = ?", hash).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertDataset records an ingested dataset and its rows in one transaction.
func (db *DB) InsertDataset(d model.Dataset, matches []model.HistoricalMatch) error {
	return db.inTx(func(tx *sql.Tx) error {
		return insertDataset(tx, d, matches)
	})
}

// IngestDataset stores the updated player models together with the dataset
// and its rows. Either everything is committed or nothing is, so a failed
// ingest can be retried without counting any game twice.
func (db *DB) IngestDataset(d model.Dataset, matches []model.HistoricalMatch, models []*player.Model) error {
	return db.inTx(func(tx *sql.Tx) error {
		if err := savePlayers(tx, models); err != nil {
			return err
		}
		return insertDataset(tx, d, matches)
	})
}

func insertDataset(tx *sql.Tx, d model.Dataset, matches []model.HistoricalMatch) error {
	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO datasets(hash, path, row_count, ingested_at)
		VALUES (?, ?, ?, ?)`,
		d.Hash, d.Path, d.Rows, d.IngestedAt,
	); err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO matches(
			dataset_hash, row_index, match_date, tournament, player1, player2, pbp, score, winner
		) VALUES (?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range matches {
		if _, err := stmt.Exec(d.Hash, m.Row, m.Date, m.Tournament,
			m.Player1, m.Player2, m.PBP, m.Score, int(m.Winner)); err != nil {
			return fmt.Errorf("insert match row %d: %w", m.Row, err)
		}
	}
	return nil
}

// ListDatasets returns all ingested datasets, newest first.
func (db *DB) ListDatasets() ([]model.Dataset, error) {
	rows, err := db.conn.Query(`
		SELECT hash, path, row_count, ingested_at
		FROM datasets ORDER BY ingested_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Dataset
	for rows.Next() {
		var d model.Dataset
		if err := rows.Scan(&d.Hash, &d.Path, &d.Rows, &d.IngestedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SavePlayers replaces the stored counts of every given model.
func (db *DB) SavePlayers(models []*player.Model) error {
	return db.inTx(func(tx *sql.Tx) error {
		return savePlayers(tx, models)
	})
}

func savePlayers(tx *sql.Tx, models []*player.Model) error {
	now := time.Now().UTC().Format(time.RFC3339)
	stmt, err := tx.Prepare(`
		INSERT INTO transition_counts(player, role, from_state, to_state, count)
		VALUES (?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range models {
		if _, err := tx.Exec(`
			INSERT INTO players(name, updated_at) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at`,
			m.Name(), now,
		); err != nil {
			return fmt.Errorf("upsert player %s: %w", m.Name(), err)
		}
		if _, err := tx.Exec("DELETE FROM transition_counts WHERE player = ?", m.Name()); err != nil {
			return fmt.Errorf("clear counts for %s: %w", m.Name(), err)
		}
		for _, c := range m.Cells() {
			if _, err := stmt.Exec(m.Name(), c.Role.String(), int(c.From), int(c.To), c.Count); err != nil {
				return fmt.Errorf("insert counts for %s: %w", m.Name(), err)
			}
		}
	}
	return nil
}

// LoadPlayer rebuilds one stored model. Unknown names return an error
// wrapping player.ErrPlayerNotFound.
func (db *DB) LoadPlayer(name string, logger zerolog.Logger) (*player.Model, error) {
	var count int
	if err := db.conn.QueryRow("SELECT COUNT(1) FROM players WHERE name = ?", name).Scan(&count); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %s", player.ErrPlayerNotFound, name)
	}

	cells, err := db.loadCells("WHERE player = ?", name)
	if err != nil {
		return nil, err
	}
	return player.Restore(name, cells[name], player.WithLogger(logger.With().Str("player", name).Logger()))
}

// LoadRegistry rebuilds every stored model.
func (db *DB) LoadRegistry(logger zerolog.Logger) (*player.Registry, error) {
	rows, err := db.conn.Query("SELECT name FROM players ORDER BY name")
	if err != nil {
		return nil, err
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, err
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cells, err := db.loadCells("")
	if err != nil {
		return nil, err
	}

	reg := player.NewRegistry(logger)
	for _, name := range names {
		m, err := player.Restore(name, cells[name], player.WithLogger(logger.With().Str("player", name).Logger()))
		if err != nil {
			return nil, err
		}
		reg.Add(m)
	}
	return reg, nil
}

// loadCells returns the stored counts grouped by player.
func (db *DB) loadCells(where string, args ...any) (map[string][]player.Cell, error) {
	rows, err := db.conn.Query(`
		SELECT player, role, from_state, to_state, count
		FROM transition_counts `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]player.Cell)
	for rows.Next() {
		var (
			name, roleStr string
			from, to      int
			c             player.Cell
		)
		if err := rows.Scan(&name, &roleStr, &from, &to, &c.Count); err != nil {
			return nil, err
		}
		if c.Role, err = model.ParseRole(roleStr); err != nil {
			return nil, fmt.Errorf("counts for %s: %w", name, err)
		}
		c.From, c.To = automaton.State(from), automaton.State(to)
		out[name] = append(out[name], c)
	}
	return out, rows.Err()
}

// ListPlayers returns the summary of every stored player ordered by name.
func (db *DB) ListPlayers() ([]model.PlayerSummary, error) {
	reg, err := db.LoadRegistry(zerolog.Nop())
	if err != nil {
		return nil, err
	}
	out := make([]model.PlayerSummary, 0, reg.Len())
	for _, m := range reg.Models() {
		out = append(out, m.Summary())
	}
	return out, nil
}

// InsertRun stores (or updates) the bookkeeping of an evaluation run.
func (db *DB) InsertRun(r model.RunSummary) error {
	return db.inTx(func(tx *sql.Tx) error {
		return insertRun(tx, r)
	})
}

// InsertPredictions bulk-inserts predictions in a transaction. The run must
// already exist.
func (db *DB) InsertPredictions(preds []model.Prediction) error {
	return db.inTx(func(tx *sql.Tx) error {
		return insertPredictions(tx, preds)
	})
}

// SaveRun stores a run and its predictions in one transaction.
func (db *DB) SaveRun(r model.RunSummary, preds []model.Prediction) error {
	return db.inTx(func(tx *sql.Tx) error {
		if err := insertRun(tx, r); err != nil {
			return err
		}
		return insertPredictions(tx, preds)
	})
}

func insertRun(tx *sql.Tx, r model.RunSummary) error {
	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO prediction_runs(id, dataset, sets, created_at, evaluated, correct, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Dataset, int(r.Format), r.CreatedAt, r.Evaluated, r.Correct, r.Skipped,
	); err != nil {
		return fmt.Errorf("insert run %s: %w", r.RunID, err)
	}
	return nil
}

func insertPredictions(tx *sql.Tx, preds []model.Prediction) error {
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO predictions(
			run_id, row_index, player1, player2, sets, p, half_width,
			trials, converged, predicted, actual, err
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range preds {
		_, err = stmt.Exec(
			p.RunID, p.Row, p.Player1, p.Player2, int(p.Format), p.P, p.HalfWidth,
			p.Trials, boolInt(p.Converged), int(p.Predicted), int(p.Actual), p.Err,
		)
		if err != nil {
			return fmt.Errorf("insert prediction row %d: %w", p.Row, err)
		}
	}
	return nil
}

// GetPredictions returns the predictions of a run ordered by dataset row.
func (db *DB) GetPredictions(runID string) ([]model.Prediction, error) {
	rows, err := db.conn.Query(`
		SELECT run_id, row_index, player1, player2, sets, p, half_width,
		       trials, converged, predicted, actual, err
		FROM predictions WHERE run_id = ? ORDER BY row_index`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Prediction
	for rows.Next() {
		var (
			p                            model.Prediction
			sets, predicted, actual, cnv int
		)
		if err := rows.Scan(&p.RunID, &p.Row, &p.Player1, &p.Player2, &sets, &p.P, &p.HalfWidth,
			&p.Trials, &cnv, &predicted, &actual, &p.Err); err != nil {
			return nil, err
		}
		p.Format = model.Format(sets)
		p.Converged = cnv != 0
		p.Predicted = model.PlayerIndex(predicted)
		p.Actual = model.PlayerIndex(actual)
		out = append(out, p)
	}
	return out, rows.Err()
}

const runColumns = "id, dataset, sets, created_at, evaluated, correct, skipped"

func scanRun(s interface{ Scan(...any) error }) (model.RunSummary, error) {
	var (
		r    model.RunSummary
		sets int
	)
	err := s.Scan(&r.RunID, &r.Dataset, &sets, &r.CreatedAt, &r.Evaluated, &r.Correct, &r.Skipped)
	r.Format = model.Format(sets)
	return r, err
}

// ListRuns returns all evaluation runs, newest first.
func (db *DB) ListRuns() ([]model.RunSummary, error) {
	rows, err := db.conn.Query("SELECT " + runColumns + " FROM prediction_runs ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRunByPrefix finds the first run whose id starts with the given prefix.
func (db *DB) GetRunByPrefix(prefix string) (*model.RunSummary, error) {
	r, err := scanRun(db.conn.QueryRow(
		"SELECT "+runColumns+" FROM prediction_runs WHERE id LIKE ? ORDER BY created_at DESC LIMIT 1", prefix+"%"))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetDBOverview counts the rows of every table.
func (db *DB) GetDBOverview() (model.Overview, error) {
	var ov model.Overview
	err := db.conn.QueryRow(`
		SELECT
			(SELECT COUNT(1) FROM players),
			(SELECT COUNT(1) FROM datasets),
			(SELECT COUNT(1) FROM matches),
			(SELECT COUNT(1) FROM prediction_runs),
			(SELECT COUNT(1) FROM predictions),
			(SELECT COALESCE(SUM(count), 0) FROM transition_counts)`).
		Scan(&ov.Players, &ov.Datasets, &ov.Matches, &ov.Runs, &ov.Predictions, &ov.Transitions)
	return ov, err
}

// QueryRaw runs an arbitrary query and returns its columns and rows as strings.
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]string
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			if v.Valid {
				row[i] = v.String
			} else {
				row[i] = "NULL"
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

// inTx runs fn in a transaction that is committed only if fn succeeds.
func (db *DB) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
