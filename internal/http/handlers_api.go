package http

import (
	"context"
	"net/http"
	"time"

	"h2olog/internal/log"
	"h2olog/internal/storage"
)

type summaryJSON struct {
	Date        string  `json:"date"`
	TotalIntake float64 `json:"totalIntake"`
	TotalOutput float64 `json:"totalOutput"`
	CountIntake int     `json:"countIntake"`
	CountOutput int     `json:"countOutput"`
	Balance     float64 `json:"balance"`
	OutputRatio float64 `json:"outputRatio"`
}

type seriesPointJSON struct {
	Date        string  `json:"date"`
	IntakeTotal float64 `json:"intakeTotal"`
	OutputTotal float64 `json:"outputTotal"`
}

func (s *Server) handleAPIEntries(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.entries.List(r.Context())).Write(w)
}

// handleAPICreateEntry accepts the entry form fields as JSON or as a
// urlencoded body.
func (s *Server) handleAPICreateEntry(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		JSONError(http.StatusBadRequest, "malformed request body").Write(w)
		return
	}
	draft, err := ParseEntryDraft(p.Values(), s.dash.Location())
	if err != nil {
		JSONError(http.StatusUnprocessableEntity, err.Error()).Write(w)
		return
	}
	e, err := s.entries.Add(r.Context(), draft)
	if err != nil {
		if _, ok := userMessage(err); ok {
			JSONError(http.StatusUnprocessableEntity, err.Error()).Write(w)
			return
		}
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to save entry", log.FieldError, err, log.FieldOperation, log.OpCreate)
		JSONError(http.StatusInternalServerError, "entry could not be saved").Write(w)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(e).Write(w)
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	date, err := ParseDateQuery(r.URL.Query(), s.dash.Location(), s.dash.Today())
	if err != nil {
		JSONError(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	sum := s.dash.Summary(r.Context(), date)
	NewResponse().JSON(summaryJSON{
		Date:        sum.Date.String(),
		TotalIntake: sum.TotalIntake,
		TotalOutput: sum.TotalOutput,
		CountIntake: sum.CountIntake,
		CountOutput: sum.CountOutput,
		Balance:     sum.Balance(),
		OutputRatio: sum.OutputRatio(),
	}).Write(w)
}

func (s *Server) handleAPISeries(w http.ResponseWriter, r *http.Request) {
	days, err := ParseDaysQuery(r.URL.Query(), s.dash.TrendDays())
	if err != nil {
		JSONError(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	points := s.dash.Series(r.Context(), days)
	out := make([]seriesPointJSON, 0, len(points))
	for _, p := range points {
		out = append(out, seriesPointJSON{Date: p.Date.String(), IntakeTotal: p.IntakeTotal, OutputTotal: p.OutputTotal})
	}
	NewResponse().JSON(out).Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks templates and storage.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := map[string]any{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if p, ok := s.blobs.(storage.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			checks["storage"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	} else {
		checks["storage"] = "not_checked"
	}

	checks["entries"] = s.entries.Len()
	checks["pending_confirmations"] = s.gate.Pending()
	checks["realtime_clients"] = s.hub.Count()
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"rejected":       s.limiter.Hits(),
	}
	checks["suspicious_requests"] = s.detector.SuspiciousRequests()
	checks["requests"] = s.tracer.TotalRequests()

	NewResponse().Status(code).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}
