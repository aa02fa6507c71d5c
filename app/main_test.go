package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smsguard/smsguard/app/storage/engine"
	"github.com/smsguard/smsguard/lib/bayes"
)

func TestMakeDB(t *testing.T) {
	t.Run("sqlite file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "test.db")
		db, err := makeDB(context.Background(), file)
		require.NoError(t, err)
		defer db.Close()
		assert.Equal(t, engine.Sqlite, db.Type())
	})

	t.Run("sqlite in memory", func(t *testing.T) {
		db, err := makeDB(context.Background(), ":memory:")
		require.NoError(t, err)
		defer db.Close()
		assert.Equal(t, engine.Sqlite, db.Type())
	})
}

func TestMakeVerdictLogger(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	logger := makeVerdictLogger(buf)

	logger.Log("win free\ncash now", bayes.Result{Class: bayes.ClassSpam, Probability: 92.5, Certain: true})

	var entry struct {
		TimeStamp   string  `json:"ts"`
		Text        string  `json:"text"`
		Class       string  `json:"class"`
		Probability float64 `json:"probability"`
		Certain     bool    `json:"certain"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "win free cash now", entry.Text, "newlines replaced with spaces")
	assert.Equal(t, "spam", entry.Class)
	assert.InDelta(t, 92.5, entry.Probability, 1e-9)
	assert.True(t, entry.Certain)
	assert.NotEmpty(t, entry.TimeStamp)
}

func TestMakeVerdictLogWriter(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		opts := options{}
		opts.Logger.Enabled = false
		wr, err := makeVerdictLogWriter(opts)
		require.NoError(t, err)
		assert.NotNil(t, wr)
		assert.NoError(t, wr.Close())
	})

	t.Run("enabled with size suffix", func(t *testing.T) {
		opts := options{}
		opts.Logger.Enabled = true
		opts.Logger.FileName = filepath.Join(t.TempDir(), "verdicts.log")
		opts.Logger.MaxSize = "10M"
		opts.Logger.MaxBackups = 2
		wr, err := makeVerdictLogWriter(opts)
		require.NoError(t, err)
		_, err = wr.Write([]byte("test entry\n"))
		assert.NoError(t, err)
		assert.NoError(t, wr.Close())
	})

	t.Run("bad size", func(t *testing.T) {
		opts := options{}
		opts.Logger.Enabled = true
		opts.Logger.MaxSize = "not-a-size"
		_, err := makeVerdictLogWriter(opts)
		assert.Error(t, err)
	})
}

func TestExecute_TrainAndClassify(t *testing.T) {
	corpus := filepath.Join(t.TempDir(), "corpus.tsv")
	content := "spam\twin a free prize now\n" +
		"spam\tfree cash offer just for you\n" +
		"spam\tcheap meds online no prescription\n" +
		"ham\tsee you at lunch\n" +
		"ham\tmeeting moved to 3pm\n" +
		"ham\tthanks for the update\n"
	require.NoError(t, os.WriteFile(corpus, []byte(content), 0o600))

	opts := options{
		DB:      filepath.Join(t.TempDir(), "test.db"),
		Corpus:  corpus,
		Message: "free prize cash",
	}
	opts.Training.Enabled = true
	opts.Training.Alpha = 1
	opts.Training.TrainRatio = 1
	opts.Training.Seed = 42

	err := execute(context.Background(), opts)
	assert.NoError(t, err)
}

func TestExecute_NoModel(t *testing.T) {
	opts := options{DB: filepath.Join(t.TempDir(), "test.db"), Message: "hello"}
	err := execute(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no trained model")
}
