package bayes

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultAlpha is the add-one (Laplace) smoothing constant used when no
// explicit value is configured.
const DefaultAlpha = 1.0

// training errors, callers check them with errors.Is
var (
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrInvalidTrainingData = errors.New("invalid training data")
)

// likelihood keeps the smoothed conditional probability of a token per class
type likelihood struct {
	spam float64
	ham  float64
}

// Model is a trained naive bayes model. Immutable once produced and safe for
// concurrent use by any number of Classify callers.
type Model struct {
	alpha       float64
	priorSpam   float64
	priorHam    float64
	vocab       *Vocabulary
	likelihoods map[string]likelihood
	totalSpam   int // total token count for spam, frozen at training time
	totalHam    int // total token count for ham, frozen at training time
}

// Train tokenizes labeled messages and estimates a model from them. It fails
// atomically: a negative alpha, an empty training set or a row with an
// unrecognized class reject the whole call and no partial model is returned.
func Train(messages []Message, alpha float64) (*Model, error) {
	if alpha < 0 {
		return nil, fmt.Errorf("%w: negative smoothing alpha %v", ErrInvalidConfig, alpha)
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: no training messages", ErrInvalidTrainingData)
	}
	docs := make([]Document, 0, len(messages))
	for i, msg := range messages {
		if !msg.Class.Valid() {
			return nil, fmt.Errorf("%w: unrecognized class %q at row %d", ErrInvalidTrainingData, string(msg.Class), i)
		}
		docs = append(docs, NewDocument(msg.Class, Tokenize(msg.Text)...))
	}
	return Estimate(BuildVocabulary(docs...), BuildFrequencyTable(docs...), alpha)
}

// Estimate computes class priors and smoothed token likelihoods from a
// vocabulary and a frequency table. For every vocabulary token t and class c
// the likelihood is (count(t,c)+alpha) / (total_tokens(c)+alpha*|vocab|),
// strictly positive for alpha > 0 even when the class never saw the token.
// Vocabulary size and per-class totals are frozen into the model.
func Estimate(vocab *Vocabulary, freq *FrequencyTable, alpha float64) (*Model, error) {
	if alpha < 0 {
		return nil, fmt.Errorf("%w: negative smoothing alpha %v", ErrInvalidConfig, alpha)
	}
	total := freq.TotalDocuments()
	if total == 0 {
		return nil, fmt.Errorf("%w: no training messages", ErrInvalidTrainingData)
	}

	m := &Model{
		alpha:       alpha,
		priorSpam:   float64(freq.Documents(ClassSpam)) / float64(total),
		priorHam:    float64(freq.Documents(ClassHam)) / float64(total),
		vocab:       vocab,
		likelihoods: make(map[string]likelihood, vocab.Size()),
		totalSpam:   freq.TotalTokens(ClassSpam),
		totalHam:    freq.TotalTokens(ClassHam),
	}
	for _, token := range vocab.tokens {
		m.likelihoods[token] = likelihood{
			spam: smoothed(freq.Count(token, ClassSpam), m.totalSpam, vocab.Size(), alpha),
			ham:  smoothed(freq.Count(token, ClassHam), m.totalHam, vocab.Size(), alpha),
		}
	}
	return m, nil
}

// smoothed computes (count+alpha) / (total+alpha*|vocab|). With alpha == 0 a
// token unseen in the class gets exactly zero likelihood, the documented risk
// of disabling smoothing.
func smoothed(count, total, vocabSize int, alpha float64) float64 {
	denom := float64(total) + alpha*float64(vocabSize)
	if denom == 0 {
		return 0
	}
	return (float64(count) + alpha) / denom
}

// Alpha returns the smoothing constant the model was trained with.
func (m *Model) Alpha() float64 { return m.alpha }

// Priors returns the class priors; they sum to 1 within float tolerance.
func (m *Model) Priors() (spam, ham float64) { return m.priorSpam, m.priorHam }

// VocabSize returns the frozen vocabulary size.
func (m *Model) VocabSize() int { return m.vocab.Size() }

// Tokens returns vocabulary tokens in the fixed enumeration order.
func (m *Model) Tokens() []string { return m.vocab.Tokens() }

// Likelihood returns the smoothed conditional probabilities of a token under
// both classes; ok is false for tokens outside the vocabulary.
func (m *Model) Likelihood(token string) (spam, ham float64, ok bool) {
	lk, found := m.likelihoods[token]
	return lk.spam, lk.ham, found
}

// modelJSON is the serialized form of a model. Token order carries the
// vocabulary enumeration; spam and ham likelihood slices align with it.
type modelJSON struct {
	Alpha           float64   `json:"alpha"`
	PriorSpam       float64   `json:"prior_spam"`
	PriorHam        float64   `json:"prior_ham"`
	TotalSpamTokens int       `json:"total_spam_tokens"`
	TotalHamTokens  int       `json:"total_ham_tokens"`
	Tokens          []string  `json:"tokens"`
	Spam            []float64 `json:"spam"`
	Ham             []float64 `json:"ham"`
}

// MarshalJSON implements json.Marshaler, preserving vocabulary order.
func (m *Model) MarshalJSON() ([]byte, error) {
	data := modelJSON{
		Alpha:           m.alpha,
		PriorSpam:       m.priorSpam,
		PriorHam:        m.priorHam,
		TotalSpamTokens: m.totalSpam,
		TotalHamTokens:  m.totalHam,
		Tokens:          m.vocab.Tokens(),
		Spam:            make([]float64, 0, m.vocab.Size()),
		Ham:             make([]float64, 0, m.vocab.Size()),
	}
	for _, token := range m.vocab.tokens {
		lk := m.likelihoods[token]
		data.Spam = append(data.Spam, lk.spam)
		data.Ham = append(data.Ham, lk.ham)
	}
	return json.Marshal(data)
}

// UnmarshalJSON implements json.Unmarshaler and validates the payload, so a
// corrupted snapshot can't produce a usable but broken model.
func (m *Model) UnmarshalJSON(b []byte) error {
	var data modelJSON
	if err := json.Unmarshal(b, &data); err != nil {
		return fmt.Errorf("can't decode model: %w", err)
	}
	if data.Alpha < 0 {
		return fmt.Errorf("%w: negative smoothing alpha %v", ErrInvalidConfig, data.Alpha)
	}
	if len(data.Spam) != len(data.Tokens) || len(data.Ham) != len(data.Tokens) {
		return fmt.Errorf("%w: likelihoods don't align with tokens", ErrInvalidTrainingData)
	}

	vocab := &Vocabulary{index: make(map[string]int, len(data.Tokens)), tokens: data.Tokens}
	likelihoods := make(map[string]likelihood, len(data.Tokens))
	for i, token := range data.Tokens {
		if _, ok := vocab.index[token]; ok {
			return fmt.Errorf("%w: duplicated token %q", ErrInvalidTrainingData, token)
		}
		vocab.index[token] = i
		likelihoods[token] = likelihood{spam: data.Spam[i], ham: data.Ham[i]}
	}

	m.alpha = data.Alpha
	m.priorSpam = data.PriorSpam
	m.priorHam = data.PriorHam
	m.totalSpam = data.TotalSpamTokens
	m.totalHam = data.TotalHamTokens
	m.vocab = vocab
	m.likelihoods = likelihoods
	return nil
}
