package i18n_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stoklog/stoklog-backend/pkg/i18n"
	"github.com/stretchr/testify/assert"
)

func TestParseAcceptLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"id-ID,id;q=0.9,en;q=0.8", "id"},
		{"in", "id"},
		{"en-US,en;q=0.9", "en"},
		{"fr-FR, id;q=0.5", "id"},
		{"de", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, i18n.ParseAcceptLanguage(tt.header))
		})
	}
}

func TestLocalizer_T(t *testing.T) {
	params := map[string]string{"resource": "gudang"}

	assert.Equal(t, "gudang tidak ditemukan", i18n.TWithLocale("id", "errors.not_found", params))
	assert.Equal(t, "batch not found", i18n.T("errors.not_found", map[string]string{"resource": "batch"}))
	assert.Equal(t, "no.such.key", i18n.T("no.such.key"))
	assert.Equal(t, "en", i18n.NewLocalizer("xx").GetLocale())
}

func TestMiddleware(t *testing.T) {
	var got string
	h := i18n.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = i18n.GetLocaleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "id-ID")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "id", got)
	assert.Equal(t, "id", rec.Header().Get("Content-Language"))
	assert.Equal(t, "en", i18n.GetLocaleFromContext(context.Background()))
}
