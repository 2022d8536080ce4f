package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadFixtures_BaseOnly(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "gemini-2.5-pro.txt", "**Tools**\n1. Which tools?")
	writeFixture(t, dir, "gpt-4o.txt", "hello")

	fixtures, err := loadFixtures(dir)
	require.NoError(t, err)
	require.Len(t, fixtures, 2)
	assert.Equal(t, []string{"**Tools**\n1. Which tools?"}, fixtures["gemini-2.5-pro"])
}

func TestLoadFixtures_Sequential(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "gemini-2.5-pro.2.owl", "ontology")
	writeFixture(t, dir, "gemini-2.5-pro.1.txt", "questions")
	writeFixture(t, dir, "gemini-2.5-pro.txt", "fallback")
	writeFixture(t, dir, ".hidden.txt", "ignored")
	writeFixture(t, dir, "README", "ignored")

	fixtures, err := loadFixtures(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"questions", "ontology", "fallback"}, fixtures["gemini-2.5-pro"])
	assert.Len(t, fixtures, 1)
}

func TestLoadFixtures_EmptyDir(t *testing.T) {
	_, err := loadFixtures(t.TempDir())
	assert.Error(t, err)
}

func generate(t *testing.T, h http.Handler, model, prompt string) (*httptest.ResponseRecorder, geminiResponse) {
	t.Helper()
	body := `{"contents":[{"role":"user","parts":[{"text":` + quote(prompt) + `}]}],` +
		`"systemInstruction":{"parts":[{"text":"be terse"}]},` +
		`"generationConfig":{"temperature":0.01}}`
	req := httptest.NewRequest(http.MethodPost, "/v1beta/models/"+model+":generateContent", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp geminiResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestGenerateContent_Sequence(t *testing.T) {
	s := newServer(map[string][]string{
		"gemini-2.5-pro": {"questions", "ontology"},
	}, nil)
	h := s.routes()

	rec, resp := generate(t, h, "gemini-2.5-pro", "report text")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "questions", resp.Candidates[0].Content.Parts[0].Text)
	assert.Equal(t, "STOP", resp.Candidates[0].FinishReason)
	assert.Equal(t, "gemini-2.5-pro", resp.ModelVersion)
	assert.Equal(t, resp.UsageMetadata.PromptTokenCount+resp.UsageMetadata.CandidatesTokenCount, resp.UsageMetadata.TotalTokenCount)

	_, resp = generate(t, h, "gemini-2.5-pro", "procedure")
	assert.Equal(t, "ontology", resp.Candidates[0].Content.Parts[0].Text)

	// The last fixture repeats.
	_, resp = generate(t, h, "gemini-2.5-pro", "again")
	assert.Equal(t, "ontology", resp.Candidates[0].Content.Parts[0].Text)

	assert.Equal(t, int64(3), s.calls.Load())
}

func TestGenerateContent_Errors(t *testing.T) {
	h := newServer(map[string][]string{"gemini-2.5-pro": {"x"}}, nil).routes()

	rec, _ := generate(t, h, "unknown-model", "p")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1beta/models/gemini-2.5-pro:countTokens", strings.NewReader("{}"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1beta/models/gemini-2.5-pro:generateContent", strings.NewReader("{"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatCompletions(t *testing.T) {
	h := newServer(map[string][]string{"qwen2.5:14b": {"answer"}}, nil).routes()

	body, _ := json.Marshal(chatRequest{
		Model:    "qwen2.5:14b",
		Messages: []chatMessage{{Role: "user", Content: "hi"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "answer", resp.Choices[0].Message.Content)
	assert.Equal(t, "assistant", resp.Choices[0].Message.Role)
}

func TestRequestsCapture(t *testing.T) {
	s := newServer(map[string][]string{"gemini-2.5-pro": {"a", "b"}}, nil)
	h := s.routes()
	generate(t, h, "gemini-2.5-pro", "first prompt")
	generate(t, h, "gemini-2.5-pro", "second prompt")

	req := httptest.NewRequest(http.MethodGet, "/requests?model=gemini-2.5-pro&call=2", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		RequestsByModel map[string][]capturedRequest `json:"requests_by_model"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	reqs := out.RequestsByModel["gemini-2.5-pro"]
	require.Len(t, reqs, 1)
	assert.Equal(t, 2, reqs[0].CallIndex)
	assert.Equal(t, "gemini", reqs[0].API)
	require.Len(t, reqs[0].Messages, 2)
	assert.Equal(t, "system", reqs[0].Messages[0].Role)
	assert.Equal(t, "be terse", reqs[0].Messages[0].Content)
	assert.Equal(t, "second prompt", reqs[0].Messages[1].Content)
	require.NotNil(t, reqs[0].Temperature)
	assert.InDelta(t, 0.01, *reqs[0].Temperature, 1e-9)
}

func TestStatsAndHealth(t *testing.T) {
	s := newServer(map[string][]string{"gemini-2.5-flash": {"a"}}, nil)
	h := s.routes()
	generate(t, h, "gemini-2.5-flash", "p")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	var stats struct {
		TotalCalls   int64          `json:"total_calls"`
		CallsByModel map[string]int `json:"calls_by_model"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalCalls)
	assert.Equal(t, 1, stats.CallsByModel["gemini-2.5-flash"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
