package bayes

import (
	"fmt"
	"math"
)

// Result is the outcome of a single classification. Created fresh per call,
// never persisted by the model.
type Result struct {
	Class       Class   `json:"class"`       // decided class, ClassUnknown on a tie
	SpamScore   float64 `json:"spam_score"`  // log prior plus token log likelihoods
	HamScore    float64 `json:"ham_score"`   // same accumulation for ham
	Probability float64 `json:"probability"` // probability of the decided class in percent
	Certain     bool    `json:"certain"`     // false when both scores are exactly equal
}

// String implements Stringer interface
func (r Result) String() string {
	if !r.Certain {
		return "unknown, scores tied"
	}
	return fmt.Sprintf("%s, probability %.2f%%", r.Class, r.Probability)
}

// Classify tokenizes raw text with the same tokenizer used at training time
// and scores it against both classes. Scores accumulate in log space: the
// product of priors and per-token likelihoods underflows to zero on long
// messages, while log sums stay comparable. Tokens outside the vocabulary
// contribute no factor to either score, unknown words are uninformative, not
// penalized. Classification never fails for any input; the only ambiguous
// outcome is an exact tie, reported with Certain set to false.
func (m *Model) Classify(raw string) Result {
	spam := math.Log(m.priorSpam)
	ham := math.Log(m.priorHam)

	for _, token := range Tokenize(raw) {
		lk, ok := m.likelihoods[token]
		if !ok {
			continue
		}
		spam += math.Log(lk.spam)
		ham += math.Log(lk.ham)
	}

	res := Result{SpamScore: spam, HamScore: ham}
	switch {
	case spam > ham:
		res.Class, res.Certain = ClassSpam, true
		res.Probability = softmax(spam, ham) * 100
	case ham > spam:
		res.Class, res.Certain = ClassHam, true
		res.Probability = softmax(ham, spam) * 100
	default:
		// both scores equal, including the case of both at -Inf; the model
		// found no discriminating evidence and refuses to guess
		res.Class = ClassUnknown
		res.Probability = 50
	}
	return res
}

// softmax converts two log scores to the normalized probability of the first
func softmax(a, b float64) float64 {
	top := math.Max(a, b)
	if math.IsInf(top, -1) {
		return 0.5
	}
	ea, eb := math.Exp(a-top), math.Exp(b-top)
	return ea / (ea + eb)
}
