package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"batch-health/internal/config"
	"batch-health/internal/ingest"
	"batch-health/internal/models"
	"batch-health/internal/render"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	})
}

type ruleView struct {
	Name    string          `json:"name"`
	Title   string          `json:"title"`
	Rule    models.ZoneRule `json:"rule"`
	Columns ingest.Columns  `json:"columns"`
}

func (s *Server) rulesHandler(w http.ResponseWriter, r *http.Request) {
	views := make([]ruleView, 0, len(s.cfg.Rules))
	for _, name := range config.RuleNames(s.cfg.Rules) {
		rc, rule, err := s.cfg.Rule(name)
		if err != nil {
			s.fail(w, err)
			return
		}
		views = append(views, ruleView{Name: name, Title: rc.Title, Rule: rule, Columns: rc.Columns.Merge()})
	}
	writeJSON(w, http.StatusOK, views)
}

type pointInput struct {
	Label    string          `json:"label"`
	Previous json.RawMessage `json:"previous"`
	Current  json.RawMessage `json:"current"`
}

type classifyRequest struct {
	Rule       string           `json:"rule"`
	InlineRule *models.ZoneRule `json:"inline_rule"`
	Title      string           `json:"title"`
	Points     []pointInput     `json:"points"`
}

func (s *Server) classifyHandler(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, &AppError{Code: "BAD_REQUEST", Message: err.Error()})
		return
	}

	name, title, rule, err := s.resolveRule(req.Rule, req.InlineRule)
	if err != nil {
		s.fail(w, err)
		return
	}
	if req.Title != "" {
		title = req.Title
	}

	points := make([]models.MetricPoint, 0, len(req.Points))
	for i, in := range req.Points {
		p, err := in.toPoint(i + 1)
		if err != nil {
			s.fail(w, err)
			return
		}
		if err := s.validate.Struct(p); err != nil {
			s.fail(w, err)
			return
		}
		points = append(points, p)
	}

	s.classify(r.Context(), w, name, title, rule, points)
}

func (s *Server) resolveRule(name string, inline *models.ZoneRule) (string, string, models.ZoneRule, error) {
	if inline != nil {
		return "inline", "", *inline, nil
	}
	if name == "" {
		return "", "", models.ZoneRule{}, &AppError{
			Code:       "BAD_REQUEST",
			Message:    "either rule or inline_rule is required",
			StatusCode: http.StatusBadRequest,
		}
	}
	rc, rule, err := s.cfg.Rule(name)
	if err != nil {
		return "", "", models.ZoneRule{}, err
	}
	return name, rc.Title, rule, nil
}

// toPoint accepts percentages as JSON numbers or as strings like "6.25%".
func (in pointInput) toPoint(row int) (models.MetricPoint, error) {
	prev, err := parseJSONPercent(in.Previous)
	if err != nil {
		return models.MetricPoint{}, &ingest.ParseError{Row: row, Label: in.Label, Field: "previous", Raw: string(in.Previous), Err: err}
	}
	cur, err := parseJSONPercent(in.Current)
	if err != nil {
		return models.MetricPoint{}, &ingest.ParseError{Row: row, Label: in.Label, Field: "current", Raw: string(in.Current), Err: err}
	}
	return models.MetricPoint{Label: in.Label, Previous: prev, Current: cur}, nil
}

func parseJSONPercent(raw json.RawMessage) (float64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, errors.New("missing value")
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return 0, err
		}
		return ingest.ParsePercent(s)
	}
	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return 0, err
	}
	return ingest.ParsePercent(strconv.FormatFloat(f, 'f', -1, 64))
}

func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("rule")
	if name == "" {
		name = "bh-below-10"
	}
	rc, rule, err := s.cfg.Rule(name)
	if err != nil {
		s.fail(w, err)
		return
	}
	title := r.URL.Query().Get("title")
	if title == "" {
		title = rc.Title
	}

	body, err := uploadBody(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, &AppError{Code: "BAD_REQUEST", Message: err.Error()})
		return
	}
	defer body.Close()

	points, err := ingest.ReadCSV(body, rc.Columns)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.classify(r.Context(), w, name, title, rule, points)
}

// uploadBody returns the CSV from a multipart "file" field or the raw body.
func uploadBody(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		return r.Body, nil
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, err
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Server) classify(ctx context.Context, w http.ResponseWriter, name, title string, rule models.ZoneRule, points []models.MetricPoint) {
	report, err := s.analyzer.Analyze(title, name, rule, points)
	if err != nil {
		s.fail(w, err)
		return
	}

	if err := s.store.StoreReport(ctx, report); err != nil {
		s.log.Warn("failed to cache report", zap.String("report_id", report.ID), zap.Error(err))
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, report); err != nil {
			s.log.Warn("failed to publish report", zap.String("report_id", report.ID), zap.Error(err))
		}
	}

	reportsTotal.WithLabelValues(report.Rule.Strategy.String()).Inc()
	for _, res := range report.Results {
		pointsClassified.WithLabelValues(res.Zone.String()).Inc()
	}
	latestRiskPoints.Set(float64(report.Summary.Risk))

	if report.Summary.Risk > 0 {
		s.log.Info("risk zones detected",
			zap.String("report_id", report.ID),
			zap.String("rule", name),
			zap.Int("risk", report.Summary.Risk),
		)
	}

	writeJSON(w, http.StatusCreated, report)
}

func (s *Server) getReportHandler(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.GetReport(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) chartHandler(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.GetReport(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}

	q := r.URL.Query()
	opts := render.Options{
		Width:      queryInt(q.Get("width"), 0),
		Height:     queryInt(q.Get("height"), 0),
		ShowDeltas: q.Get("deltas") == "true",
	}

	var buf bytes.Buffer
	if err := render.RenderComparison(&buf, report.Title, report.Results, opts); err != nil {
		s.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) recentReportsHandler(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r.URL.Query().Get("limit"), defaultRecentLimit)
	if limit == 0 {
		limit = defaultRecentLimit
	}
	reports, err := s.store.GetRecentReports(r.Context(), int64(limit))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) getAnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.analyzer.GetCurrentStats())
}

func (s *Server) getRisksHandler(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r.URL.Query().Get("limit"), defaultRecentLimit)
	writeJSON(w, http.StatusOK, s.analyzer.GetRecentRisks(limit))
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	appErr := writeError(w, err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
		return
	}
	s.log.Debug("request rejected", zap.String("code", appErr.Code), zap.Error(err))
}

func queryInt(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
