// Request handlers. Bodies are parsed leniently with gjson: missing
// optional fields fall back to configured defaults, and only request-shape
// problems produce 4xx responses.
package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/compaqt/compaqt/internal/engine"
	"github.com/compaqt/compaqt/internal/monitoring"
	"github.com/compaqt/compaqt/internal/packer"
	"github.com/compaqt/compaqt/internal/store"
)

// maxBodyBytes bounds request bodies; payloads are text, not uploads.
const maxBodyBytes = 16 << 20

// defaultTokenBudget is used when /v1/pack omits token_budget.
const defaultTokenBudget = 4000

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encoding response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// readBody reads and syntax-checks a JSON request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	if !gjson.ValidBytes(body) {
		writeError(w, http.StatusBadRequest, "request body must be valid JSON")
		return nil, false
	}
	return body, true
}

// reductionParams extracts ratio and min_words, applying configured
// defaults and validating ranges.
func (g *Gateway) reductionParams(body []byte) (float64, int, error) {
	ratio := g.cfg.Compression.Ratio
	if v := gjson.GetBytes(body, "ratio"); v.Exists() {
		ratio = v.Float()
	}
	if ratio <= 0 || ratio > 1 {
		return 0, 0, fmt.Errorf("ratio must be in (0,1], got %g", ratio)
	}

	minWords := g.cfg.Compression.MinWords
	if v := gjson.GetBytes(body, "min_words"); v.Exists() {
		minWords = int(v.Int())
	}
	if minWords < 1 {
		return 0, 0, fmt.Errorf("min_words must be >= 1, got %d", minWords)
	}

	return ratio, minWords, nil
}

func (g *Gateway) handleMinify(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	code := gjson.GetBytes(body, "code")
	if !code.Exists() {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	res := g.engine.MinifyCode(r.Context(), code.String())
	g.record(r, store.KindCode, res.Report, time.Since(started))
	writeJSON(w, http.StatusOK, res)
}

func (g *Gateway) handleCompress(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	prompt := gjson.GetBytes(body, "prompt")
	if !prompt.Exists() {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	ratio, minWords, err := g.reductionParams(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := g.engine.CompressPrompt(r.Context(), prompt.String(), ratio, minWords)
	g.record(r, store.KindPrompt, res.Report, time.Since(started))
	writeJSON(w, http.StatusOK, res)
}

func (g *Gateway) handleCombined(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	code := gjson.GetBytes(body, "code").String()
	prompt := gjson.GetBytes(body, "prompt").String()
	if code == "" && prompt == "" {
		writeError(w, http.StatusBadRequest, "code or prompt is required")
		return
	}
	ratio, minWords, err := g.reductionParams(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := g.engine.CompressCombined(r.Context(), code, prompt, ratio, minWords)
	g.record(r, store.KindCombined, res.Combined, time.Since(started))
	writeJSON(w, http.StatusOK, res)
}

func (g *Gateway) handlePack(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	filesField := gjson.GetBytes(body, "files")
	if !filesField.IsArray() {
		writeError(w, http.StatusBadRequest, "files must be an array of {name, content}")
		return
	}
	var files []packer.File
	filesField.ForEach(func(_, f gjson.Result) bool {
		files = append(files, packer.File{
			Name:    f.Get("name").String(),
			Content: f.Get("content").String(),
		})
		return true
	})

	budget := defaultTokenBudget
	if v := gjson.GetBytes(body, "token_budget"); v.Exists() {
		budget = int(v.Int())
	}
	if budget < 1 {
		writeError(w, http.StatusBadRequest, "token_budget must be >= 1")
		return
	}

	res := g.packer.Pack(r.Context(), files, budget)
	g.record(r, store.KindPack, engine.Report{
		OriginalTokens:   res.Stats.OriginalTotalTokens,
		CompressedTokens: res.Stats.PackedTokens,
		Savings:          res.Stats.TokensSaved,
		SavingsPercent:   res.Stats.SavingsPercent,
	}, time.Since(started))
	writeJSON(w, http.StatusOK, res)
}

// patchResponse is the compressed document plus token accounting for the
// patched field.
type patchResponse struct {
	Body json.RawMessage `json:"body"`
	engine.Report
}

// handlePatch compresses a single string field inside an arbitrary JSON
// document, addressed by a gjson path, and patches the result back in
// place. Every other byte of the document is left untouched.
func (g *Gateway) handlePatch(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	doc := gjson.GetBytes(body, "body")
	if !doc.Exists() {
		writeError(w, http.StatusBadRequest, "body is required")
		return
	}
	path := gjson.GetBytes(body, "path").String()
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	target := doc.Get(path)
	if target.Type != gjson.String {
		writeError(w, http.StatusBadRequest, "path must address a string field")
		return
	}
	ratio, minWords, err := g.reductionParams(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := g.engine.CompressPrompt(r.Context(), target.String(), ratio, minWords)
	patched, err := sjson.Set(doc.Raw, path, res.MinimizedPrompt)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to patch path %q: %v", path, err))
		return
	}

	g.record(r, store.KindPrompt, res.Report, time.Since(started))
	writeJSON(w, http.StatusOK, patchResponse{
		Body:   json.RawMessage(patched),
		Report: res.Report,
	})
}

func (g *Gateway) handleDownload(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	text := gjson.GetBytes(body, "text")
	if !text.Exists() {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	filename := gjson.GetBytes(body, "filename").String()
	if filename == "" {
		filename = "compressed.txt"
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, text.String()); err != nil {
		log.Error().Err(err).Msg("writing download response")
	}
}

type statsResponse struct {
	Enabled bool `json:"enabled"`
	store.Stats
}

func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	if g.history == nil {
		writeJSON(w, http.StatusOK, statsResponse{Enabled: false})
		return
	}

	stats, err := g.history.Stats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("reading history stats")
		writeJSON(w, http.StatusOK, statsResponse{Enabled: true})
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Enabled: true, Stats: stats})
}

type healthResponse struct {
	Status              string `json:"status"`
	TokenizerAvailable  bool   `json:"tokenizer_available"`
	EmbeddingsAvailable bool   `json:"embeddings_available"`
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:              "ok",
		TokenizerAvailable:  g.engine.TokenizerAvailable(),
		EmbeddingsAvailable: g.engine.EmbedderAvailable(),
	})
}

// record appends one compression outcome to the history store.
func (g *Gateway) record(r *http.Request, kind string, rep engine.Report, elapsed time.Duration) {
	if g.history == nil {
		return
	}
	err := g.history.Record(r.Context(), store.Record{
		RequestID:        monitoring.RequestIDFromContext(r.Context()),
		Kind:             kind,
		OriginalTokens:   rep.OriginalTokens,
		CompressedTokens: rep.CompressedTokens,
		TokensSaved:      rep.Savings,
		SavingsPercent:   rep.SavingsPercent,
		DurationMs:       elapsed.Milliseconds(),
	})
	if err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("recording compression history")
	}
}
