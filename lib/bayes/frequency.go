package bayes

// FrequencyTable keeps per-class token occurrence counts and per-class total
// token counts accumulated over training messages. Tokens never seen in a
// class are not materialized and count as zero.
type FrequencyTable struct {
	counts      map[Class]map[string]int
	totalTokens map[Class]int
	documents   map[Class]int
	totalDocs   int
}

// BuildFrequencyTable counts token occurrences per class. Every occurrence
// counts, not just distinct tokens, and the per-class total token count grows
// by the full message length.
func BuildFrequencyTable(docs ...Document) *FrequencyTable {
	f := &FrequencyTable{
		counts:      make(map[Class]map[string]int),
		totalTokens: make(map[Class]int),
		documents:   make(map[Class]int),
	}
	for _, doc := range docs {
		f.documents[doc.Class]++
		f.totalDocs++
		f.totalTokens[doc.Class] += len(doc.Tokens)
		if f.counts[doc.Class] == nil {
			f.counts[doc.Class] = make(map[string]int)
		}
		for _, token := range doc.Tokens {
			f.counts[doc.Class][token]++
		}
	}
	return f
}

// Count returns the number of occurrences of a token in messages of the
// given class, zero for tokens the class never saw.
func (f *FrequencyTable) Count(token string, c Class) int { return f.counts[c][token] }

// TotalTokens returns the sum of message lengths for the class.
func (f *FrequencyTable) TotalTokens(c Class) int { return f.totalTokens[c] }

// Documents returns the number of messages seen for the class.
func (f *FrequencyTable) Documents(c Class) int { return f.documents[c] }

// TotalDocuments returns the number of messages seen across all classes.
func (f *FrequencyTable) TotalDocuments() int { return f.totalDocs }
