package http

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusAccepted).
		Header("X-Custom", "yes").
		BodyHTML([]byte("<p>ok</p>")).
		Write(w)

	if w.Code != http.StatusAccepted {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusAccepted)
	}
	if w.Body.String() != "<p>ok</p>" {
		t.Errorf("Body = %q", w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("X-Custom"); got != "yes" {
		t.Errorf("X-Custom = %q", got)
	}
}

func TestResponseBuilder_Redirect(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Redirect("/history").Write(w)

	if w.Code != http.StatusSeeOther {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if got := w.Header().Get("Location"); got != "/history" {
		t.Errorf("Location = %q", got)
	}
}

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Status(http.StatusCreated).JSON(map[string]int{"total": 3}).Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	var body map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["total"] != 3 {
		t.Errorf("body = %q, err %v", w.Body.String(), err)
	}

	// NaN cannot be encoded
	w = httptest.NewRecorder()
	NewResponse().JSON(math.NaN()).Write(w)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("unencodable value status = %d", w.Code)
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name string
		b    *ResponseBuilder
		code int
	}{
		{"bad request", BadRequestError("bad <input>"), http.StatusBadRequest},
		{"internal", InternalServerError("boom"), http.StatusInternalServerError},
		{"not found", NotFoundError("missing"), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.b.Write(w)
			if w.Code != tt.code {
				t.Errorf("Status code = %d, want %d", w.Code, tt.code)
			}
			if strings.Contains(w.Body.String(), "<input>") {
				t.Errorf("message not escaped: %q", w.Body.String())
			}
		})
	}

	w := httptest.NewRecorder()
	JSONError(http.StatusUnprocessableEntity, "invalid amount").Write(w)
	if w.Code != http.StatusUnprocessableEntity || !strings.Contains(w.Body.String(), `"error":"invalid amount"`) {
		t.Errorf("JSONError = %d %q", w.Code, w.Body.String())
	}
}
