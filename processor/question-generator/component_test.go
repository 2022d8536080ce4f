package questiongenerator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/ontogenia/llm"
	"github.com/c360studio/ontogenia/llm/testutil"
	"github.com/c360studio/ontogenia/storage"
)

func TestComponent_Generate(t *testing.T) {
	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{{Content: geminiOutput, Model: "gemini-2.5-pro", Usage: llm.TokenUsage{TotalTokens: 900}}},
	}
	dir := t.TempDir()
	c, err := NewComponent(DefaultConfig(), mock, storage.NewArtifacts(dir, nil), nil)
	require.NoError(t, err)

	result, err := c.Generate(context.Background(), "APT41 is a Chinese state-sponsored group.")
	require.NoError(t, err)

	req := mock.LastRequest()
	assert.Equal(t, "questions", req.Capability)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.01, *req.Temperature)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, "APT41 is a Chinese state-sponsored group.")

	trace := llm.GetTraceContext(mock.LastContext())
	assert.Equal(t, Stage, trace.Stage)

	assert.Equal(t, 900, result.Usage.TotalTokens)
	assert.Len(t, result.Set.Themes, 2)

	text, err := os.ReadFile(filepath.Join(dir, "cq_text_flash.txt"))
	require.NoError(t, err)
	assert.Equal(t, result.Flattened, string(text))
	assert.Equal(t, filepath.Join(dir, "cq_text_flash.txt"), result.TextPath)

	data, err := os.ReadFile(result.SetPath)
	require.NoError(t, err)
	set, err := LoadSet(data)
	require.NoError(t, err)
	assert.Equal(t, result.Set.Titles(), set.Titles())
	assert.Equal(t, 5, set.QuestionCount())
}

func TestComponent_GenerateOverwrites(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cq_text_flash.txt"), []byte("stale content that is longer"), 0644))

	mock := &testutil.MockLLMClient{Responses: []*llm.Response{{Content: "a\n**T**\n1. q?\nz"}}}
	c, err := NewComponent(DefaultConfig(), mock, storage.NewArtifacts(dir, nil), nil)
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "report")
	require.NoError(t, err)

	text, err := os.ReadFile(filepath.Join(dir, "cq_text_flash.txt"))
	require.NoError(t, err)
	assert.Equal(t, "**T**\nq?", string(text))
}

func TestComponent_NoArtifacts(t *testing.T) {
	mock := &testutil.MockLLMClient{Responses: []*llm.Response{{Content: geminiOutput}}}
	c, err := NewComponent(DefaultConfig(), mock, nil, nil)
	require.NoError(t, err)

	result, err := c.Generate(context.Background(), "report")
	require.NoError(t, err)
	assert.Empty(t, result.TextPath)
	assert.Empty(t, result.SetPath)
}

func TestComponent_Errors(t *testing.T) {
	t.Run("llm failure", func(t *testing.T) {
		mock := &testutil.MockLLMClient{Err: llm.NewFatalError(errors.New("API key not valid"))}
		c, err := NewComponent(DefaultConfig(), mock, nil, nil)
		require.NoError(t, err)

		_, err = c.Generate(context.Background(), "report")
		assert.True(t, llm.IsFatal(err))
	})

	t.Run("malformed output", func(t *testing.T) {
		mock := &testutil.MockLLMClient{Responses: []*llm.Response{{Content: "I cannot help with that."}}}
		c, err := NewComponent(DefaultConfig(), mock, nil, nil)
		require.NoError(t, err)

		_, err = c.Generate(context.Background(), "report")
		assert.True(t, llm.IsMalformed(err))
	})

	t.Run("empty report", func(t *testing.T) {
		mock := &testutil.MockLLMClient{}
		c, err := NewComponent(DefaultConfig(), mock, nil, nil)
		require.NoError(t, err)

		_, err = c.Generate(context.Background(), "")
		assert.Error(t, err)
		assert.Zero(t, mock.CallCount())
	})
}

func TestNewComponent_Validation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Temperature = 3
	_, err := NewComponent(cfg, &testutil.MockLLMClient{}, nil, nil)
	assert.Error(t, err)

	_, err = NewComponent(DefaultConfig(), nil, nil, nil)
	assert.Error(t, err)
}
