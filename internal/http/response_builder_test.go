package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSONResponse_Basic(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Data([]string{"a"}).Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Content-Type"); got != contentTypeJSON {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Body.String(); got != `{"data":["a"]}` {
		t.Errorf("Body = %q", got)
	}
}

func TestJSONResponse_CustomHeader(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Header("Retry-After", "60").Status(http.StatusTooManyRequests).Write(w)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Status code = %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q", got)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Body = %q, want empty", w.Body.String())
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		builder    *JSONResponse
		wantStatus int
		wantBody   string
	}{
		{
			name:       "invalid key",
			builder:    InvalidKeyError(),
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"errors":[{"message":"Invalid key"}]}`,
		},
		{
			name:       "invalid data",
			builder:    InvalidDataError(),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"errors":[{"message":"Invalid data"}]}`,
		},
		{
			name:       "skip",
			builder:    SkipError("Account not found"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"errors":[{"status":"SKIP","message":"Account not found"}]}`,
		},
		{
			name:       "options",
			builder:    OptionsError(msgOptionsNoDefault),
			wantStatus: http.StatusOK,
			wantBody:   `{"data":[{"label":"ERROR no default budget","value":""}]}`,
		},
		{
			name:       "generic",
			builder:    ErrorResponse(http.StatusServiceUnavailable, "Sync unavailable"),
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"errors":[{"message":"Sync unavailable"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("Body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestJSONResponse_EncodingFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Data(func() {}).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}
