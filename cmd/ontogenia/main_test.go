package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ontologyvalidator "github.com/c360studio/ontogenia/processor/ontology-validator"
	"github.com/c360studio/ontogenia/workflow"
)

const cqAnswer = `Here are the competency questions:
**Threat Actor**
1. Who is APT41?
2. What are APT41's aliases?
**Malware**
1. Which malware does APT41 use?
Let me know if you need more.`

const owlDoc = `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
     xmlns:rdfs="http://www.w3.org/2000/01/rdf-schema#"
     xmlns:owl="http://www.w3.org/2002/07/owl#">
    <owl:Ontology rdf:about="http://example.org/apt41"/>
    <owl:Class rdf:about="http://example.org/apt41#ThreatActor"/>
    <owl:Class rdf:about="http://example.org/apt41#Malware"/>
    <owl:ObjectProperty rdf:about="http://example.org/apt41#uses">
        <rdfs:domain rdf:resource="http://example.org/apt41#ThreatActor"/>
        <rdfs:range rdf:resource="http://example.org/apt41#Malware"/>
    </owl:ObjectProperty>
    <owl:DatatypeProperty rdf:about="http://example.org/apt41#alias"/>
    <owl:NamedIndividual rdf:about="http://example.org/apt41#APT41">
        <rdf:type rdf:resource="http://example.org/apt41#ThreatActor"/>
    </owl:NamedIndividual>
</rdf:RDF>`

const aliasShapes = `@prefix sh: <http://www.w3.org/ns/shacl#> .
@prefix ex: <http://example.org/apt41#> .

ex:ActorShape a sh:NodeShape ;
    sh:targetClass ex:ThreatActor ;
    sh:property ex:AliasProperty .

ex:AliasProperty sh:path ex:alias ;
    sh:minCount 1 .
`

// geminiServer answers generateContent calls with answers in order.
type geminiServer struct {
	*httptest.Server

	mu      sync.Mutex
	answers []string
	prompts []string
}

func newGeminiServer(t *testing.T, answers ...string) *geminiServer {
	t.Helper()
	g := &geminiServer{answers: answers}
	g.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		g.mu.Lock()
		idx := len(g.prompts)
		last := req.Contents[len(req.Contents)-1]
		g.prompts = append(g.prompts, last.Parts[0].Text)
		g.mu.Unlock()

		if idx >= len(g.answers) {
			http.Error(w, "no more answers", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content":      map[string]any{"role": "model", "parts": []map[string]string{{"text": g.answers[idx]}}},
				"finishReason": "STOP",
			}},
			"usageMetadata": map[string]int{"promptTokenCount": 40, "candidatesTokenCount": 10, "totalTokenCount": 50},
			"modelVersion":  "gemini-2.5-pro",
		})
	}))
	t.Cleanup(g.Close)
	return g
}

func (g *geminiServer) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// workspace prepares an isolated working directory with a project config
// pointing every Gemini endpoint at url.
func workspace(t *testing.T, url string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", filepath.Join(dir, "home"))
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("ONTOGENIA_MODEL", "")
	t.Setenv("ONTOGENIA_LOG_LEVEL", "")

	cfg := fmt.Sprintf(`log:
  level: error
model:
  retry:
    max_attempts: 1
models:
  endpoints:
    gemini-pro: {provider: gemini, url: %q, model: gemini-2.5-pro}
    gemini-flash: {provider: gemini, url: %q, model: gemini-2.5-flash}
extract:
  parser: local
  noise: [HEADER]
  noise_replacement: ""
synthesis:
  procedure_file: procedure.txt
output:
  dir: out
  metrics_file: metrics.prom
  call_history: calls.db
`, url, url)
	writeFile(t, dir, "ontogenia.yaml", cfg)
	writeFile(t, dir, "procedure.txt", "Design classes first, then properties.")
	pages := []string{"APT41 overview HEADER", "Targets HEADER", "Malware", "Tools", "Table of contents"}
	writeFile(t, dir, "apt41.txt", strings.Join(pages, "\f"))
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "ontogenia version 0.1.0 (build: dev)\n", out)
}

func TestRun_EndToEnd(t *testing.T) {
	srv := newGeminiServer(t, cqAnswer, "```xml\n"+owlDoc+"\n```")
	dir := workspace(t, srv.URL)

	out, err := execute(t, "run", "apt41.txt", "--validate")
	require.NoError(t, err)

	assert.Contains(t, out, "4 kept of 5, 2 noise matches")
	assert.Contains(t, out, "3 in 2 themes")
	assert.Contains(t, out, "run complete")
	assert.Contains(t, out, "Object Property: uses, Domain: [ThreatActor], Range: [Malware]")
	assert.Contains(t, out, "Conforms: True")

	prompts := srv.Prompts()
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[0], "APT41 overview \nTargets \nMalware\nTools")
	assert.NotContains(t, prompts[0], "Table of contents")
	assert.Contains(t, prompts[1], "Design classes first")
	assert.Contains(t, prompts[1], "**Threat Actor**\nWho is APT41?")

	outDir := filepath.Join(dir, "out")
	assert.FileExists(t, filepath.Join(outDir, "cq_text_flash.txt"))
	assert.FileExists(t, filepath.Join(outDir, "cq_set.yaml"))
	assert.FileExists(t, filepath.Join(outDir, "owl_files", "output.owl"))
	assert.FileExists(t, filepath.Join(outDir, "owl_files", "apt41_ontology.gv"))
	assert.FileExists(t, filepath.Join(outDir, "calls.db"))

	metrics, err := os.ReadFile(filepath.Join(outDir, "metrics.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "ontogenia_llm_requests_total")
	assert.Contains(t, string(metrics), `ontogenia_pipeline_stage_runs_total{outcome="success",stage="synthesize"} 1`)

	data, err := os.ReadFile(filepath.Join(outDir, "run_summary.yaml"))
	require.NoError(t, err)
	summary, err := workflow.LoadSummary(data)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusComplete, summary.Status)
	assert.Equal(t, 2, summary.Counts.Classes)

	// The call history of the run is queryable afterwards.
	out, err = execute(t, "calls", summary.RunID)
	require.NoError(t, err)
	assert.Contains(t, out, "question-generator")
	assert.Contains(t, out, "ontology-synthesizer")
	assert.Contains(t, out, "gemini/gemini-2.5-pro")
}

func TestRun_StageFailure(t *testing.T) {
	srv := newGeminiServer(t, cqAnswer, "I cannot produce an ontology for this.")
	dir := workspace(t, srv.URL)

	out, err := execute(t, "run", "apt41.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "synthesize")
	assert.Contains(t, out, "run failed")

	data, err := os.ReadFile(filepath.Join(dir, "out", "run_summary.yaml"))
	require.NoError(t, err)
	summary, err := workflow.LoadSummary(data)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusFailed, summary.Status)
}

func TestStagesSeparately(t *testing.T) {
	srv := newGeminiServer(t, cqAnswer, "```owl\n"+owlDoc+"\n```")
	dir := workspace(t, srv.URL)

	out, err := execute(t, "extract", "apt41.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "apt41.txt: kept 4 of 5 segments, 2 noise matches")
	raw := filepath.Join(dir, "out", "raw_text.txt")
	assert.FileExists(t, raw)

	out, err = execute(t, "questions", raw, "--render")
	require.NoError(t, err)
	assert.Contains(t, out, "3 competency questions in 2 themes")
	assert.Contains(t, out, "Threat Actor")
	assert.Contains(t, out, "Which malware does APT41 use?")

	out, err = execute(t, "synthesize")
	require.NoError(t, err)
	assert.Contains(t, out, "ontology with 2 classes, 1 object properties, 1 data properties, 1 individuals")
	assert.FileExists(t, filepath.Join(dir, "out", "owl_files", "output.owl"))
	assert.Len(t, srv.Prompts(), 2)
}

func TestExtract_Print(t *testing.T) {
	workspace(t, "http://127.0.0.1:1")

	out, err := execute(t, "extract", "apt41.txt", "--print", "--raw-text", "clean.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "APT41 overview \nTargets \nMalware\nTools")
	assert.FileExists(t, filepath.Join("out", "clean.txt"))
}

func TestValidate(t *testing.T) {
	dir := workspace(t, "http://127.0.0.1:1")
	writeFile(t, dir, "onto/a.owl", owlDoc)
	writeFile(t, dir, "shapes.ttl", aliasShapes)

	out, err := execute(t, "validate", "onto/a.owl")
	require.NoError(t, err)
	assert.Contains(t, out, "[Malware, ThreatActor]")
	assert.Contains(t, out, "Ontology IRI: http://example.org/apt41")
	assert.Contains(t, out, "Classes: 2")
	assert.Contains(t, out, "conforms")

	out, err = execute(t, "validate", "onto/*.owl", "--shapes", "shapes.ttl", "--mermaid", "graph.mmd")
	require.NoError(t, err, "violations are reported, not errors")
	assert.Contains(t, out, "Conforms: False")
	assert.Contains(t, out, "MinCountConstraintComponent")
	assert.FileExists(t, filepath.Join(dir, "out", "graph.mmd"))

	_, err = execute(t, "validate", "onto/a.owl", "--shapes", "shapes.ttl", "--fail-on-violation")
	require.Error(t, err)
	assert.True(t, ontologyvalidator.IsValidationFailure(err))
}

func TestValidate_MissingFile(t *testing.T) {
	workspace(t, "http://127.0.0.1:1")

	_, err := execute(t, "validate", "missing/*.owl")
	require.Error(t, err)
	assert.False(t, ontologyvalidator.IsValidationFailure(err))
}

func TestModels(t *testing.T) {
	dir := workspace(t, "http://127.0.0.1:1")
	require.NoDirExists(t, filepath.Join(dir, "out"))

	out, err := execute(t, "models")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "out", "metrics.prom"), "metrics flush creates the output directory")
	assert.Contains(t, out, "gemini/gemini-2.5-pro at http://127.0.0.1:1")
	assert.Contains(t, out, "gemini-pro -> gemini-flash")

	out, err = execute(t, "models", "--model", "claude-sonnet")
	require.NoError(t, err)
	assert.Contains(t, out, "claude-sonnet -> gemini-pro -> gemini-flash")

	_, err = execute(t, "models", "--model", "no-such-endpoint")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model endpoint")
}

func TestConfig(t *testing.T) {
	dir := workspace(t, "http://127.0.0.1:1")

	out, err := execute(t, "config", "show", "--output-dir", "elsewhere")
	require.NoError(t, err)
	assert.Contains(t, out, "dir: elsewhere")
	assert.Contains(t, out, "parser: local")

	_, err = execute(t, "config", "show", "--log-level", "loud")
	require.Error(t, err)

	out, err = execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "home", ".config", "ontogenia", "config.yaml"))
	assert.FileExists(t, filepath.Join(dir, "home", ".config", "ontogenia", "config.yaml"))

	out, err = execute(t, "config", "init", "--project")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestCalls_Disabled(t *testing.T) {
	dir := workspace(t, "http://127.0.0.1:1")
	writeFile(t, dir, "bare.yaml", "output:\n  call_history: \"\"\n")

	_, err := execute(t, "calls", "some-run", "--config", "bare.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "call history is disabled")
}
