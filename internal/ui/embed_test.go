package ui

import (
	"bytes"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates_ParseAllPages(t *testing.T) {
	funcs := template.FuncMap{
		"badge":     func(any) string { return "" },
		"day":       func(any) string { return "" },
		"kb":        func(any) string { return "" },
		"nl2br":     func(string) template.HTML { return "" },
		"lineError": func(any) string { return "" },
	}
	tmpls, err := Templates(funcs)
	require.NoError(t, err)
	for _, name := range Pages {
		tmpl, ok := tmpls[name]
		require.True(t, ok, name)
		assert.NotNil(t, tmpl.Lookup("layout"), name)
		assert.NotNil(t, tmpl.Lookup("content"), name)
	}
}

func TestTemplates_MissingFuncFails(t *testing.T) {
	_, err := Templates(template.FuncMap{})
	assert.Error(t, err)
}

func TestStaticHandler(t *testing.T) {
	h, err := StaticHandler()
	require.NoError(t, err)

	tests := []struct {
		path string
		want int
	}{
		{"/static/style.css", http.StatusOK},
		{"/static/", http.StatusNotFound},
		{"/static/missing.css", http.StatusNotFound},
		{"/static/../templates/layout.html", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte(".badge-done")))
}
