package bayes

import (
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_EndToEnd(t *testing.T) {
	m, err := Train(trainingSet(), 1)
	require.NoError(t, err)
	require.Equal(t, 13, m.VocabSize())

	tests := []struct {
		name     string
		text     string
		expected Class
		certain  bool
	}{
		{"spam evidence", "free cash", ClassSpam, true},
		{"ham evidence", "see you at lunch", ClassHam, true},
		{"spam with noise", "free cash!!! CLICK???", ClassSpam, true},
		{"no evidence, equal priors", "completely unknown vocabulary words", ClassUnknown, false},
		{"empty message, equal priors", "", ClassUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.Classify(tt.text)
			assert.Equal(t, tt.certain, res.Certain)
			assert.Equal(t, tt.expected, res.Class)
			if tt.certain {
				assert.Greater(t, res.Probability, 50.0)
			} else {
				assert.InDelta(t, 50.0, res.Probability, 1e-9)
			}
		})
	}
}

func TestClassify_PriorDecidesWithoutEvidence(t *testing.T) {
	messages := append(trainingSet(), Message{Class: ClassSpam, Text: "extra spam sample"})
	m, err := Train(messages, 1)
	require.NoError(t, err)

	empty := m.Classify("")
	assert.Equal(t, ClassSpam, empty.Class, "larger prior wins on empty input")
	assert.True(t, empty.Certain)

	unknown := m.Classify("xyzzy qwerty asdf")
	assert.Equal(t, empty.Class, unknown.Class, "all-unknown message reduces to the prior decision")
	assert.Equal(t, empty.SpamScore, unknown.SpamScore)
	assert.Equal(t, empty.HamScore, unknown.HamScore)
}

func TestClassify_LongMessageNoUnderflow(t *testing.T) {
	m, err := Train(trainingSet(), 1)
	require.NoError(t, err)

	// products of hundreds of probabilities underflow to zero, log sums don't
	long := strings.Repeat("free cash ", 500)
	res := m.Classify(long)
	assert.Equal(t, ClassSpam, res.Class)
	assert.True(t, res.Certain, "log-space scoring avoids a spurious tie")
	assert.False(t, math.IsInf(res.SpamScore, -1))
	assert.False(t, math.IsInf(res.HamScore, -1))
}

func TestClassify_ZeroAlphaAbsentToken(t *testing.T) {
	m, err := Train(trainingSet(), 0)
	require.NoError(t, err)

	// "free" never occurs in ham, without smoothing the ham score drops to
	// log(0) = -Inf and spam wins outright
	res := m.Classify("free")
	assert.Equal(t, ClassSpam, res.Class)
	assert.True(t, res.Certain)
	assert.True(t, math.IsInf(res.HamScore, -1))
}

func TestClassify_Concurrent(t *testing.T) {
	m, err := Train(trainingSet(), 1)
	require.NoError(t, err)
	expected := m.Classify("free cash")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, expected, m.Classify("free cash"))
			}
		}()
	}
	wg.Wait()
}

func TestResult_String(t *testing.T) {
	m, err := Train(trainingSet(), 1)
	require.NoError(t, err)

	assert.Contains(t, m.Classify("free cash").String(), "spam")
	assert.Contains(t, m.Classify("").String(), "unknown")
}
