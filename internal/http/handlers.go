package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"h2olog/internal/confirm"
	"h2olog/internal/core"
	"h2olog/internal/log"
)

// userMessage turns a validation error into text for the form. The
// second result is false for errors that are not the user's fault.
func userMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Enter an amount in ml greater than zero.", true
	case errors.Is(err, core.ErrInvalidType):
		return "Choose intake or output.", true
	case errors.Is(err, core.ErrInvalidPreset):
		return "Presets must be whole ml greater than zero.", true
	case errors.Is(err, core.ErrDuplicatePreset):
		return "That preset already exists.", true
	case errors.Is(err, core.ErrInvalidDate):
		return "Use a date like 2024-03-01.", true
	}
	return "", false
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ov := s.dash.Overview(r.Context())
	s.render(w, r, http.StatusOK, "overview.html", newOverviewView(ov, s.dash.Today(), s.dash.TrendDays()))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	groups := s.dash.History(r.Context())
	s.render(w, r, http.StatusOK, "history.html", newHistoryView(groups, s.dash.Today(), s.dash.Location()))
}

func (s *Server) entryForm(r *http.Request, t core.EntryType, values url.Values, errMsg string) entryFormView {
	v := entryFormView{
		page:    page{Title: "Add " + t.Label(), Active: "overview", Error: errMsg},
		Type:    string(t),
		Label:   t.Label(),
		Presets: s.settings.Presets(r.Context(), t),
	}
	if values != nil {
		v.Amount = values.Get("amount")
		v.Time = values.Get("time")
		v.Note = values.Get("note")
	}
	return v
}

func (s *Server) handleEntryForm(w http.ResponseWriter, r *http.Request) {
	t := core.Intake
	if raw := r.URL.Query().Get("type"); raw != "" {
		parsed, err := core.ParseEntryType(raw)
		if err != nil {
			BadRequestError("Unknown entry type.").Write(w)
			return
		}
		t = parsed
	}
	s.render(w, r, http.StatusOK, "entry_form.html", s.entryForm(r, t, nil, ""))
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		BadRequestError("Malformed form data.").Write(w)
		return
	}

	draft, err := ParseEntryDraft(r.PostForm, s.dash.Location())
	if err != nil {
		t, typeErr := core.ParseEntryType(r.PostForm.Get("type"))
		if typeErr != nil {
			t = core.Intake
		}
		msg, ok := userMessage(err)
		if !ok {
			msg = err.Error()
		}
		logger.WarnContext(r.Context(), "Entry rejected", log.FieldError, err, log.FieldOperation, log.OpValidate)
		s.render(w, r, http.StatusUnprocessableEntity, "entry_form.html", s.entryForm(r, t, r.PostForm, msg))
		return
	}

	if _, err := s.entries.Add(r.Context(), draft); err != nil {
		if msg, ok := userMessage(err); ok {
			s.render(w, r, http.StatusUnprocessableEntity, "entry_form.html", s.entryForm(r, draft.Type, r.PostForm, msg))
			return
		}
		logger.ErrorContext(r.Context(), "Failed to save entry", log.FieldError, err, log.FieldOperation, log.OpCreate)
		InternalServerError("The entry could not be saved.").Write(w)
		return
	}
	NewResponse().Redirect("/").Write(w)
}

func (s *Server) handleRequestDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	e, ok := s.entries.Get(r.Context(), id)
	if !ok {
		// already gone; show the current state
		NewResponse().Redirect("/history").Write(w)
		return
	}
	desc := fmt.Sprintf("%s ml %s at %s", core.FormatVolume(e.Amount), e.Type, formatClock(e.Timestamp, s.dash.Location()))
	req := s.gate.RequestDelete(id, desc)
	NewResponse().Redirect("/confirm/" + req.Token).Write(w)
}

func (s *Server) handleRequestClear(w http.ResponseWriter, r *http.Request) {
	n := s.entries.Len()
	if n == 0 {
		NewResponse().Redirect("/history").Write(w)
		return
	}
	req := s.gate.RequestClear(n)
	NewResponse().Redirect("/confirm/" + req.Token).Write(w)
}

func (s *Server) renderExpired(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusGone, "message.html", messageView{
		page:    page{Title: "Confirmation expired", Active: "history"},
		Message: "This confirmation has expired or was already used. Nothing was deleted.",
	})
}

func (s *Server) handleConfirmPage(w http.ResponseWriter, r *http.Request) {
	req, ok := s.gate.Lookup(r.PathValue("token"))
	if !ok {
		s.renderExpired(w, r)
		return
	}
	s.render(w, r, http.StatusOK, "confirm.html", newConfirmView(req, ""))
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		BadRequestError("Malformed form data.").Write(w)
		return
	}
	token := r.PathValue("token")
	decision, err := confirm.ParseDecision(r.PostForm.Get("decision"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	out, err := s.gate.Decide(r.Context(), token, decision, r.PostForm.Get("phrase"), s.perform)
	switch {
	case errors.Is(err, confirm.ErrUnknownToken):
		s.renderExpired(w, r)
		return
	case errors.Is(err, confirm.ErrPhraseMismatch):
		msg := fmt.Sprintf("Type %s to confirm.", confirm.StrongPhrase)
		s.render(w, r, http.StatusUnprocessableEntity, "confirm.html", newConfirmView(out.Request, msg))
		return
	case err != nil:
		logger.ErrorContext(r.Context(), "Confirmed action failed",
			log.FieldError, err, "action", string(out.Request.Action))
		InternalServerError("The change could not be saved.").Write(w)
		return
	}

	logger.InfoContext(r.Context(), "Confirmation decided",
		"action", string(out.Request.Action), "decision", string(decision), "performed", out.Performed)
	NewResponse().Redirect("/history").Write(w)
}

// perform runs a confirmed request against the entry store.
func (s *Server) perform(ctx context.Context, req confirm.Request) error {
	switch req.Action {
	case confirm.ActionDeleteEntry:
		return s.entries.Delete(ctx, req.EntryID)
	case confirm.ActionClearAll:
		return s.entries.Clear(ctx)
	}
	return fmt.Errorf("unknown action %q", req.Action)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	v := newInsightView(s.insights.State(), s.requester.Configured(), s.dash.Location())
	s.render(w, r, http.StatusOK, "insights.html", v)
}

func (s *Server) handleTriggerInsight(w http.ResponseWriter, r *http.Request) {
	started := s.insights.Trigger()
	log.FromContext(r.Context()).DebugContext(r.Context(), "Insight requested", "started", started)
	NewResponse().Redirect("/insights").Write(w)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "settings.html", newSettingsView(s.settings.Get(r.Context()), ""))
}

func (s *Server) handleAddPreset(w http.ResponseWriter, r *http.Request) {
	s.changePreset(w, r, s.settings.AddPreset)
}

func (s *Server) handleRemovePreset(w http.ResponseWriter, r *http.Request) {
	s.changePreset(w, r, s.settings.RemovePreset)
}

func (s *Server) changePreset(w http.ResponseWriter, r *http.Request, change func(context.Context, core.EntryType, int) (core.UserSettings, error)) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Malformed form data.").Write(w)
		return
	}
	kind, value, err := ParsePresetForm(r.PostForm)
	if err == nil {
		_, err = change(r.Context(), kind, value)
	}
	if err != nil {
		msg, ok := userMessage(err)
		if !ok {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to update presets", log.FieldError, err)
			InternalServerError("Settings could not be saved.").Write(w)
			return
		}
		s.render(w, r, http.StatusUnprocessableEntity, "settings.html", newSettingsView(s.settings.Get(r.Context()), msg))
		return
	}
	NewResponse().Redirect("/settings").Write(w)
}
