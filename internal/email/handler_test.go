package email

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandleSend(t *testing.T) {
	h := NewHandler(slog.Default())

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"to":"a@b.test","subject":"hi","body":"hello"}`, http.StatusOK},
		{"bad json", `{`, http.StatusBadRequest},
		{"bad recipient", `{"to":"not-an-address","subject":"hi"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.HandleSend(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
