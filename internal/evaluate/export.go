package evaluate

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/pable/go-tennis-mc/internal/model"
)

// Export formats.
const (
	ExportCSV  = "csv"
	ExportJSON = "json"
)

// csvHeader is the column layout of exported predictions, after the row index.
var csvHeader = []string{"", "server1", "server2", "prediction", "p", "true"}

// WriteCSV writes one line per prediction. Skipped rows have an empty
// prediction and p.
func WriteCSV(w io.Writer, preds []model.Prediction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range preds {
		prediction, prob := "", ""
		if p.Err == "" {
			prediction = strconv.Itoa(int(p.Predicted))
			prob = strconv.FormatFloat(p.P, 'f', -1, 64)
		}
		actual := ""
		if p.Actual != 0 {
			actual = strconv.Itoa(int(p.Actual))
		}
		rec := []string{strconv.Itoa(p.Row), p.Player1, p.Player2, prediction, prob, actual}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", p.Row, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonRun struct {
	RunID       string           `json:"run_id"`
	Dataset     string           `json:"dataset"`
	Format      string           `json:"format"`
	CreatedAt   string           `json:"created_at"`
	Evaluated   int              `json:"evaluated"`
	Correct     int              `json:"correct"`
	Skipped     int              `json:"skipped"`
	Accuracy    float64          `json:"accuracy"`
	Predictions []jsonPrediction `json:"predictions"`
}

type jsonPrediction struct {
	Row        int     `json:"row"`
	Server1    string  `json:"server1"`
	Server2    string  `json:"server2"`
	Prediction int     `json:"prediction,omitempty"`
	P          float64 `json:"p"`
	HalfWidth  float64 `json:"half_width"`
	Trials     int     `json:"trials"`
	Converged  bool    `json:"converged"`
	True       int     `json:"true,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// WriteJSON writes the run summary and its predictions as one indented document.
func WriteJSON(w io.Writer, run model.RunSummary, preds []model.Prediction) error {
	out := jsonRun{
		RunID:       run.RunID,
		Dataset:     run.Dataset,
		Format:      run.Format.String(),
		CreatedAt:   run.CreatedAt,
		Evaluated:   run.Evaluated,
		Correct:     run.Correct,
		Skipped:     run.Skipped,
		Accuracy:    run.Accuracy(),
		Predictions: make([]jsonPrediction, len(preds)),
	}
	for i, p := range preds {
		out.Predictions[i] = jsonPrediction{
			Row:        p.Row,
			Server1:    p.Player1,
			Server2:    p.Player2,
			Prediction: int(p.Predicted),
			P:          p.P,
			HalfWidth:  p.HalfWidth,
			Trials:     p.Trials,
			Converged:  p.Converged,
			True:       int(p.Actual),
			Error:      p.Err,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Write dispatches on format.
func Write(w io.Writer, format string, run model.RunSummary, preds []model.Prediction) error {
	switch format {
	case ExportCSV:
		return WriteCSV(w, preds)
	case ExportJSON:
		return WriteJSON(w, run, preds)
	}
	return &model.ConfigurationError{Field: "export format", Value: format, Msg: "want csv or json"}
}
