package dataset

import (
	"fmt"

	"github.com/smsguard/smsguard/lib/bayes"
)

// EvalResult tabulates classifier agreement with known labels over an
// evaluation subset.
type EvalResult struct {
	Total     int
	Correct   int
	Ties      int // rows where the model refused to decide
	FalseSpam int // ham rows classified as spam
	FalseHam  int // spam rows classified as ham
}

// Accuracy returns the share of correctly classified rows, ties count as
// misses. Zero for an empty evaluation subset.
func (r EvalResult) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}

// String implements Stringer interface
func (r EvalResult) String() string {
	return fmt.Sprintf("total: %d, correct: %d (%.2f%%), ties: %d, false spam: %d, false ham: %d",
		r.Total, r.Correct, r.Accuracy()*100, r.Ties, r.FalseSpam, r.FalseHam)
}

// Evaluate classifies every row of the evaluation subset against the trained
// model and tabulates agreement with the known labels. The model is used
// read-only.
func Evaluate(m *bayes.Model, rows []bayes.Message) EvalResult {
	res := EvalResult{Total: len(rows)}
	for _, row := range rows {
		verdict := m.Classify(row.Text)
		switch {
		case !verdict.Certain:
			res.Ties++
		case verdict.Class == row.Class:
			res.Correct++
		case verdict.Class == bayes.ClassSpam:
			res.FalseSpam++
		default:
			res.FalseHam++
		}
	}
	return res
}
