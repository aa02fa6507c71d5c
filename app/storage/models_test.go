package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smsguard/smsguard/lib/bayes"
)

func trainedModel(t *testing.T) *bayes.Model {
	t.Helper()
	model, err := bayes.Train([]bayes.Message{
		{Class: bayes.ClassSpam, Text: "win a free prize now"},
		{Class: bayes.ClassSpam, Text: "free cash offer"},
		{Class: bayes.ClassHam, Text: "see you at lunch"},
		{Class: bayes.ClassHam, Text: "meeting moved to 3pm"},
	}, bayes.DefaultAlpha)
	require.NoError(t, err)
	return model
}

func TestNewModels(t *testing.T) {
	t.Run("creates table", func(t *testing.T) {
		db := newTestDB(t)
		m, err := NewModels(context.Background(), db)
		require.NoError(t, err)
		require.NotNil(t, m)

		var exists bool
		err = db.Get(&exists, "SELECT COUNT(*) > 0 FROM sqlite_master WHERE type='table' AND name='models'")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("nil db", func(t *testing.T) {
		_, err := NewModels(context.Background(), nil)
		assert.Error(t, err)
	})
}

func TestModels_SaveAndLatest(t *testing.T) {
	ctx := context.Background()
	m, err := NewModels(ctx, newTestDB(t))
	require.NoError(t, err)

	model := trainedModel(t)

	id, err := m.Save(ctx, model, 0.95)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	loaded, info, err := m.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.NotNil(t, info)

	assert.Equal(t, id, info.ID)
	assert.InDelta(t, bayes.DefaultAlpha, info.Alpha, 1e-9)
	assert.Equal(t, model.VocabSize(), info.VocabSize)
	assert.InDelta(t, 0.95, info.Accuracy, 1e-9)

	// loaded model behaves like the original
	orig := model.Classify("free cash")
	restored := loaded.Classify("free cash")
	assert.Equal(t, orig.Class, restored.Class)
	assert.InDelta(t, orig.SpamScore, restored.SpamScore, 1e-9)
	assert.InDelta(t, orig.HamScore, restored.HamScore, 1e-9)

	t.Run("latest picks the newest snapshot", func(t *testing.T) {
		id2, err := m.Save(ctx, model, 0.99)
		require.NoError(t, err)
		assert.Greater(t, id2, id)

		_, info, err := m.Latest(ctx)
		require.NoError(t, err)
		assert.Equal(t, id2, info.ID)
		assert.InDelta(t, 0.99, info.Accuracy, 1e-9)
	})
}

func TestModels_LatestEmpty(t *testing.T) {
	ctx := context.Background()
	m, err := NewModels(ctx, newTestDB(t))
	require.NoError(t, err)

	model, info, err := m.Latest(ctx)
	assert.ErrorIs(t, err, ErrNoModel)
	assert.Nil(t, model)
	assert.Nil(t, info)
}

func TestModels_SaveNil(t *testing.T) {
	ctx := context.Background()
	m, err := NewModels(ctx, newTestDB(t))
	require.NoError(t, err)

	_, err = m.Save(ctx, nil, 0.5)
	assert.Error(t, err)
}

func TestModels_Count(t *testing.T) {
	ctx := context.Background()
	m, err := NewModels(ctx, newTestDB(t))
	require.NoError(t, err)

	count, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = m.Save(ctx, trainedModel(t), 0.9)
	require.NoError(t, err)

	count, err = m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestModelInfo_String(t *testing.T) {
	info := ModelInfo{ID: 3, Alpha: 1, VocabSize: 13, Accuracy: 0.875}
	assert.Equal(t, "model #3, alpha: 1.00, vocab: 13, accuracy: 87.50%", info.String())
}
