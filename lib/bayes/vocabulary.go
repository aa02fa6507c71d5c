package bayes

// Vocabulary is the set of distinct tokens observed in training data.
// Enumeration order is the first-seen order, fixed at build time; the order
// doesn't affect correctness but keeps diagnostics and serialized models
// reproducible.
type Vocabulary struct {
	index  map[string]int
	tokens []string
}

// BuildVocabulary collects every token from every document into a vocabulary,
// collapsing duplicates. Class labels play no role here, the vocabulary is
// shared across both classes. Empty input yields an empty vocabulary.
func BuildVocabulary(docs ...Document) *Vocabulary {
	v := &Vocabulary{index: make(map[string]int)}
	for _, doc := range docs {
		for _, token := range doc.Tokens {
			if _, ok := v.index[token]; ok {
				continue
			}
			v.index[token] = len(v.tokens)
			v.tokens = append(v.tokens, token)
		}
	}
	return v
}

// Has checks if a token is a member of the vocabulary.
func (v *Vocabulary) Has(token string) bool {
	_, ok := v.index[token]
	return ok
}

// Size returns the number of distinct tokens.
func (v *Vocabulary) Size() int { return len(v.tokens) }

// Tokens returns a copy of the vocabulary in the fixed enumeration order.
func (v *Vocabulary) Tokens() []string {
	res := make([]string, len(v.tokens))
	copy(res, v.tokens)
	return res
}
