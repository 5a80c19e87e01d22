// Package api exposes the tagging pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mkrogh/eventtag/internal/dataset"
	"github.com/mkrogh/eventtag/internal/domain"
	"github.com/mkrogh/eventtag/internal/evaluation"
	"github.com/mkrogh/eventtag/internal/processor"
	"github.com/mkrogh/eventtag/internal/registry"
	"github.com/mkrogh/eventtag/internal/submission"
)

// Default dataset file names under the data directory.
const (
	LabeledEventsFile = "labeled_events.csv"
)

// Deps carries the server collaborators. Submitter may be nil when no
// dashboard is configured.
type Deps struct {
	Processor *processor.Processor
	Engine    *evaluation.Engine
	Registry  *registry.Registry
	Submitter *submission.Client

	DataDir  string
	TeamName string
	Model    string

	Logger *slog.Logger
}

// Server routes HTTP requests into the pipeline.
type Server struct {
	deps   Deps
	logger *slog.Logger
}

// New builds a server.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Processor == nil:
		return nil, errors.New("api: Processor is required")
	case deps.Engine == nil:
		return nil, errors.New("api: Engine is required")
	case deps.Registry == nil:
		return nil, errors.New("api: Registry is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{deps: deps, logger: logger.With("component", "api")}, nil
}

// Routes returns the full handler with middleware applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/events/tag", s.handleTag)
	mux.HandleFunc("POST /api/v1/events/tag/batch", s.handleTagBatch)
	mux.HandleFunc("GET /api/v1/tags", s.handleTags)
	mux.HandleFunc("POST /api/v1/evaluate", s.handleEvaluate)
	mux.HandleFunc("POST /api/v1/submit", s.handleSubmit)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.withRequestID(s.withLogging(mux))
}

type tagRequest struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Organizer   string `json:"organizer,omitempty"`
	Subtype     string `json:"subtype,omitempty"`
	Teaser      string `json:"teaser,omitempty"`
	Description string `json:"description,omitempty"`

	// Both default to true when absent.
	IncludeReasoning  *bool `json:"include_reasoning,omitempty"`
	RequireConfidence *bool `json:"require_confidence,omitempty"`
}

func (r tagRequest) toRecord() domain.EventRecord {
	return domain.EventRecord{
		ID:          r.ID,
		Title:       r.Title,
		Organizer:   r.Organizer,
		Subtype:     r.Subtype,
		Teaser:      r.Teaser,
		Description: r.Description,
	}
}

type tagResponse struct {
	EventID          string   `json:"event_id"`
	Status           string   `json:"status"`
	Tags             []string `json:"tags"`
	Confidence       *float64 `json:"confidence,omitempty"`
	Reasoning        string   `json:"reasoning,omitempty"`
	NeedsHumanReview bool     `json:"needs_human_review"`
	ElapsedMs        float64  `json:"elapsed_ms"`
	TokensUsed       int64    `json:"tokens_used"`
	CostKroner       float64  `json:"cost_kroner"`
	Error            string   `json:"error,omitempty"`
}

func toTagResponse(res domain.ProcessingResult) tagResponse {
	out := tagResponse{
		EventID:    res.EventID,
		Status:     string(res.Status),
		Tags:       []string{},
		ElapsedMs:  res.ElapsedMs,
		TokensUsed: res.TokensUsed,
		CostKroner: res.Cost.Kroner(),
	}
	if res.Failed() {
		out.NeedsHumanReview = true
		out.Error = res.ErrorMessage
		return out
	}
	if p := res.Prediction; p != nil {
		out.Tags = p.Tags()
		conf := p.FinalConfidence
		out.Confidence = &conf
		out.Reasoning = p.Reasoning
		out.NeedsHumanReview = p.NeedsReview
		if !p.IsValid {
			out.Error = p.ParsedTagResult.Error
		}
	}
	return out
}

func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res := s.deps.Processor.ProcessEvent(r.Context(), req.toRecord())
	out := toTagResponse(res)
	if !boolFlag(req.IncludeReasoning, true) {
		out.Reasoning = ""
	}
	if !boolFlag(req.RequireConfidence, true) {
		out.Confidence = nil
	}
	s.writeJSON(w, http.StatusOK, out)
}

// boolFlag reads an optional request flag with its default.
func boolFlag(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func (s *Server) handleTagBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Events []tagRequest `json:"events"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Events) == 0 {
		s.writeError(w, http.StatusBadRequest, "events must not be empty")
		return
	}

	recs := make([]domain.EventRecord, 0, len(req.Events))
	for _, e := range req.Events {
		recs = append(recs, e.toRecord())
	}
	batch := s.deps.Processor.ProcessBatch(r.Context(), recs)

	results := make([]tagResponse, 0, len(batch.Results))
	for _, res := range batch.Results {
		results = append(results, toTagResponse(res))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"batch_id": batch.BatchID,
		"results":  results,
		"summary":  batch.Summary,
	})
}

func (s *Server) handleTags(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"tags":  s.deps.Registry.Names(),
		"count": s.deps.Registry.Len(),
	})
}

type evaluateRequest struct {
	// Limit caps the number of labeled events, zero means all.
	Limit int `json:"limit,omitempty"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	decodeLoose(r.Body, &req)

	report, _, err := s.runEvaluation(r.Context(), req.Limit)
	if err != nil {
		s.evaluationError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"metrics": report.Metrics,
		"rows":    toEvaluationRows(report.Rows),
	})
}

type submitRequest struct {
	// Name is the participant shown on the leaderboard. Falls back to the
	// configured team name when absent.
	Name string `json:"name,omitempty"`

	// Limit caps the number of labeled events, zero means all.
	Limit int `json:"limit,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if s.deps.Submitter == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no dashboard configured")
		return
	}

	var req submitRequest
	decodeLoose(r.Body, &req)
	team := req.Name
	if team == "" {
		team = s.deps.TeamName
	}

	report, totals, err := s.runEvaluation(r.Context(), req.Limit)
	if err != nil {
		s.evaluationError(w, err)
		return
	}

	resp, err := s.deps.Submitter.Submit(r.Context(), submission.Request{
		TeamName:    team,
		Model:       s.deps.Model,
		Metrics:     report.Metrics,
		TotalCost:   totals.cost,
		TotalTokens: totals.tokens,
		RecordCount: report.Metrics.TotalRecords,
		SubmittedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("submission failed", "error", err)
		s.writeError(w, http.StatusBadGateway, "submission failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"metrics":   report.Metrics,
		"dashboard": resp,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type runTotals struct {
	cost   domain.MilliOre
	tokens int64
}

// decodeLoose reads an optional JSON body; an empty or malformed body means
// defaults.
func decodeLoose[T any](body io.Reader, req *T) {
	if body == nil {
		return
	}
	if err := json.NewDecoder(body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
		var zero T
		*req = zero
	}
}

func (s *Server) runEvaluation(ctx context.Context, limit int) (*evaluation.Report, runTotals, error) {
	labeled, err := dataset.LoadLabeledEvents(filepath.Join(s.deps.DataDir, LabeledEventsFile))
	if err != nil {
		return nil, runTotals{}, err
	}
	if limit > 0 && limit < len(labeled) {
		labeled = labeled[:limit]
	}

	report, err := s.deps.Engine.Evaluate(ctx, labeled)
	if err != nil {
		return nil, runTotals{}, err
	}

	var totals runTotals
	for _, row := range report.Rows {
		totals.cost = totals.cost.Add(row.Result.Cost)
		totals.tokens += row.Result.TokensUsed
	}
	return report, totals, nil
}

func (s *Server) evaluationError(w http.ResponseWriter, err error) {
	s.logger.Error("evaluation failed", "error", err)
	if errors.Is(err, domain.ErrComputation) {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeError(w, http.StatusInternalServerError, "evaluation failed")
}

type evaluationRow struct {
	EventID    string   `json:"event_id"`
	Title      string   `json:"title"`
	Predicted  []string `json:"predicted"`
	Truth      []string `json:"truth"`
	CorrectAt1 bool     `json:"correct_at_1"`
	CorrectAt2 bool     `json:"correct_at_2"`
	CorrectAt3 bool     `json:"correct_at_3"`
	Error      string   `json:"error,omitempty"`
}

func toEvaluationRows(rows []domain.EvaluationRow) []evaluationRow {
	out := make([]evaluationRow, 0, len(rows))
	for _, row := range rows {
		er := evaluationRow{
			EventID:    row.EventID,
			Title:      row.Title,
			Predicted:  []string{},
			Truth:      row.Truth.Tags,
			CorrectAt1: row.CorrectAt1,
			CorrectAt2: row.CorrectAt2,
			CorrectAt3: row.CorrectAt3,
			Error:      row.ErrorMessage,
		}
		if !row.Result.Failed() && row.Result.Prediction != nil {
			er.Predicted = row.Result.Prediction.Tags()
		}
		out = append(out, er)
	}
	return out
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Info("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"elapsed", time.Since(start),
			"request_id", r.Context().Value(requestIDKey))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
