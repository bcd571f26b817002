package httptransport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query  string
		limit  int
		offset int
	}{
		{query: "", limit: 50, offset: 0},
		{query: "limit=10&offset=20", limit: 10, offset: 20},
		{query: "limit=0", limit: 1, offset: 0},
		{query: "limit=9000", limit: 500, offset: 0},
		{query: "limit=abc&offset=-3", limit: 50, offset: 0},
	}
	for _, tc := range tests {
		r := httptest.NewRequest(http.MethodGet, "/api/sessions/pitch-1/matches?"+tc.query, nil)
		limit, offset := ParsePagination(r)
		if limit != tc.limit || offset != tc.offset {
			t.Fatalf("ParsePagination(%q) = (%d, %d), want (%d, %d)", tc.query, limit, offset, tc.limit, tc.offset)
		}
	}
}

func TestCheckAdminAuth(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		want   bool
	}{
		{name: "admin header", header: map[string]string{"X-Admin-Key": "secret"}, want: true},
		{name: "bearer", header: map[string]string{"Authorization": "Bearer secret"}, want: true},
		{name: "wrong admin header", header: map[string]string{"X-Admin-Key": "nope", "Authorization": "Bearer secret"}, want: false},
		{name: "empty bearer", header: map[string]string{"Authorization": "Bearer "}, want: false},
		{name: "basic auth", header: map[string]string{"Authorization": "Basic secret"}, want: false},
		{name: "none", want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/history/retry", nil)
			for k, v := range tc.header {
				r.Header.Set(k, v)
			}
			if got := CheckAdminAuth(r, "secret"); got != tc.want {
				t.Fatalf("CheckAdminAuth() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAuditBodyMiddlewarePreservesBody(t *testing.T) {
	var seen string
	h := AuditBodyMiddleware(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := make([]byte, 64)
		n, _ := r.Body.Read(b)
		seen = string(b[:n])
		_, _ = w.Write([]byte(`{"phase":"running"}`))
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/sessions/pitch-1/goals", strings.NewReader(`{"side":"A"}`)))
	if seen != `{"side":"A"}` {
		t.Fatalf("handler saw body %q", seen)
	}
	if rr.Body.String() != `{"phase":"running"}` {
		t.Fatalf("response body %q was altered", rr.Body.String())
	}
}
