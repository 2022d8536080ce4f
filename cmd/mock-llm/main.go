// Package main implements an offline LLM server for local runs and wiring
// tests. It answers Gemini generateContent requests and OpenAI-compatible
// chat completions from fixture files, routing by model name, so the full
// pipeline can run without network access or API keys.
//
// Usage:
//
//	mock-llm -fixtures ./testdata/fixtures -port 8089
//
// Point an endpoint at it through the models section of ontogenia.yaml:
//
//	models:
//	  endpoints:
//	    gemini-pro: {provider: gemini, url: "http://localhost:8089", model: gemini-2.5-pro}
//
// Fixture files are named by model ("gemini-2.5-pro.txt"); their content is
// returned verbatim as the model's answer. Numbered files
// ("gemini-2.5-pro.1.txt", "gemini-2.5-pro.2.owl") are served in order, one
// per call, so a single model can answer the competency question prompt and
// then the ontology prompt. After the numbered fixtures run out, the base
// file repeats, or the last numbered fixture when there is no base file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// --- Gemini generateContent types ---

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  struct {
		Temperature *float64 `json:"temperature,omitempty"`
	} `json:"generationConfig"`
	SafetySettings []struct {
		Category  string `json:"category"`
		Threshold string `json:"threshold"`
	} `json:"safetySettings,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata geminiUsage       `json:"usageMetadata"`
	ModelVersion  string            `json:"modelVersion"`
}

// --- OpenAI-compatible types ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

// --- Server ---

// capturedRequest stores the prompt of one call for test verification.
type capturedRequest struct {
	Model       string        `json:"model"`
	API         string        `json:"api"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	CallIndex   int           `json:"call_index"`
	Timestamp   int64         `json:"timestamp"`
}

type server struct {
	fixtures map[string][]string
	calls    atomic.Int64
	logger   *slog.Logger

	mu         sync.Mutex
	modelCalls map[string]int
	requests   map[string][]capturedRequest
}

func newServer(fixtures map[string][]string, logger *slog.Logger) *server {
	if logger == nil {
		logger = slog.Default()
	}
	return &server{
		fixtures:   fixtures,
		logger:     logger,
		modelCalls: make(map[string]int),
		requests:   make(map[string][]capturedRequest),
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /v1beta/models/{call}", s.handleGenerateContent)
	mux.HandleFunc("POST /v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /requests", s.handleRequests)
	return mux
}

func main() {
	fixtureDir := flag.String("fixtures", "", "directory containing fixture response files")
	port := flag.Int("port", 8089, "port to listen on")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if envDir := os.Getenv("MOCK_LLM_FIXTURES"); envDir != "" && *fixtureDir == "" {
		*fixtureDir = envDir
	}
	if *fixtureDir == "" {
		*fixtureDir = "/fixtures"
	}

	fixtures, err := loadFixtures(*fixtureDir)
	if err != nil {
		logger.Error("Failed to load fixtures", "dir", *fixtureDir, "error", err)
		os.Exit(1)
	}
	for model, seq := range fixtures {
		logger.Info("Loaded fixtures", "model", model, "count", len(seq))
	}

	s := newServer(fixtures, logger)
	addr := fmt.Sprintf(":%d", *port)
	logger.Info("Mock LLM server listening", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: s.routes(), ReadHeaderTimeout: 10 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// next selects the fixture for the model's next call and records the prompt.
func (s *server) next(req capturedRequest) (string, int, bool) {
	seq, ok := s.fixtures[req.Model]
	if !ok {
		return "", 0, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.modelCalls[req.Model]
	s.modelCalls[req.Model] = idx + 1

	req.CallIndex = idx + 1
	req.Timestamp = time.Now().UnixMilli()
	s.requests[req.Model] = append(s.requests[req.Model], req)

	if idx >= len(seq) {
		idx = len(seq) - 1
	}
	return seq[idx], req.CallIndex, true
}

func (s *server) handleGenerateContent(w http.ResponseWriter, r *http.Request) {
	model, method, ok := strings.Cut(r.PathValue("call"), ":")
	if !ok || method != "generateContent" {
		http.Error(w, "unsupported method", http.StatusNotFound)
		return
	}

	var req geminiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	captured := capturedRequest{Model: model, API: "gemini", Temperature: req.GenerationConfig.Temperature}
	if req.SystemInstruction != nil {
		captured.Messages = append(captured.Messages, chatMessage{Role: "system", Content: joinParts(req.SystemInstruction.Parts)})
	}
	for _, c := range req.Contents {
		captured.Messages = append(captured.Messages, chatMessage{Role: c.Role, Content: joinParts(c.Parts)})
	}

	callNum := s.calls.Add(1)
	content, callIndex, ok := s.next(captured)
	if !ok {
		s.logger.Warn("No fixture for model", "call", callNum, "model", model)
		http.Error(w, fmt.Sprintf(`{"error":{"code":404,"message":"no fixture for model %q"}}`, model), http.StatusNotFound)
		return
	}
	s.logger.Info("Served generateContent", "call", callNum, "model", model, "call_index", callIndex, "bytes", len(content))

	prompt, completion := estimateTokens(captured.Messages), len(content)/4
	writeJSON(w, geminiResponse{
		Candidates: []geminiCandidate{{
			Content:      geminiContent{Role: "model", Parts: []geminiPart{{Text: content}}},
			FinishReason: "STOP",
		}},
		UsageMetadata: geminiUsage{
			PromptTokenCount:     prompt,
			CandidatesTokenCount: completion,
			TotalTokenCount:      prompt + completion,
		},
		ModelVersion: model,
	})
}

func (s *server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	callNum := s.calls.Add(1)
	content, callIndex, ok := s.next(capturedRequest{
		Model:       req.Model,
		API:         "openai",
		Messages:    req.Messages,
		Temperature: req.Temperature,
	})
	if !ok {
		s.logger.Warn("No fixture for model", "call", callNum, "model", req.Model)
		http.Error(w, fmt.Sprintf("no fixture for model %q", req.Model), http.StatusNotFound)
		return
	}
	s.logger.Info("Served chat completion", "call", callNum, "model", req.Model, "call_index", callIndex, "bytes", len(content))

	prompt, completion := estimateTokens(req.Messages), len(content)/4
	writeJSON(w, chatResponse{
		ID:      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{{
			Message:      chatMessage{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
		Usage: chatUsage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	})
}

// handleStats returns call counts for test assertions.
func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	byModel := make(map[string]int, len(s.modelCalls))
	for model, n := range s.modelCalls {
		byModel[model] = n
	}
	s.mu.Unlock()

	writeJSON(w, map[string]any{
		"total_calls":    s.calls.Load(),
		"calls_by_model": byModel,
	})
}

// handleRequests returns captured prompts, optionally filtered by the
// model and call (1-indexed) query parameters.
func (s *server) handleRequests(w http.ResponseWriter, r *http.Request) {
	modelFilter := r.URL.Query().Get("model")
	callFilter, _ := strconv.Atoi(r.URL.Query().Get("call"))

	s.mu.Lock()
	result := make(map[string][]capturedRequest)
	for model, reqs := range s.requests {
		if modelFilter != "" && model != modelFilter {
			continue
		}
		for _, req := range reqs {
			if callFilter > 0 && req.CallIndex != callFilter {
				continue
			}
			result[model] = append(result[model], req)
		}
	}
	s.mu.Unlock()

	writeJSON(w, map[string]any{"requests_by_model": result})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func joinParts(parts []geminiPart) string {
	texts := make([]string, len(parts))
	for i, p := range parts {
		texts[i] = p.Text
	}
	return strings.Join(texts, "")
}

// estimateTokens approximates prompt size at four characters per token.
func estimateTokens(msgs []chatMessage) int {
	n := 0
	for _, m := range msgs {
		n += len(m.Content)
	}
	return n / 4
}

// numberedFileRe matches "gemini-2.5-pro.1.txt" style names.
var numberedFileRe = regexp.MustCompile(`^(.+)\.(\d+)\.[A-Za-z]+$`)

// loadFixtures reads fixture files from dir and returns model → responses.
// Numbered fixtures come first in numeric order, then the base file.
func loadFixtures(dir string) (map[string][]string, error) {
	baseFiles := make(map[string]string)
	numberedFiles := make(map[string]map[int]string)

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) == "" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		if m := numberedFileRe.FindStringSubmatch(name); m != nil {
			index, _ := strconv.Atoi(m[2])
			if numberedFiles[m[1]] == nil {
				numberedFiles[m[1]] = make(map[int]string)
			}
			numberedFiles[m[1]][index] = string(data)
			return nil
		}

		baseFiles[strings.TrimSuffix(name, filepath.Ext(name))] = string(data)
		return nil
	})
	if err != nil {
		return nil, err
	}

	fixtures := make(map[string][]string)
	for model, numbered := range numberedFiles {
		indices := make([]int, 0, len(numbered))
		for idx := range numbered {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			fixtures[model] = append(fixtures[model], numbered[idx])
		}
	}
	for model, base := range baseFiles {
		fixtures[model] = append(fixtures[model], base)
	}

	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no fixture files found in %s", dir)
	}
	return fixtures, nil
}
