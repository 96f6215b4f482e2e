package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// echoSession writes the session id from the context, or "-" for anonymous.
var echoSession = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id, ok := SessionIDFromContext(r.Context())
	if !ok {
		id = "-"
	}
	w.Write([]byte(id))
})

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, _ := ts.Generate("sess-1")

	cases := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no token",
			setup:      func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "bearer header",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+valid)
			},
			wantStatus: http.StatusOK,
			wantBody:   "sess-1",
		},
		{
			name: "cookie",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: CookieName, Value: valid})
			},
			wantStatus: http.StatusOK,
			wantBody:   "sess-1",
		},
		{
			name: "garbage bearer",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer not.a.jwt")
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "non-bearer scheme falls back to cookie",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
				r.AddCookie(&http.Cookie{Name: CookieName, Value: valid})
			},
			wantStatus: http.StatusOK,
			wantBody:   "sess-1",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()

			RequireAuth(ts)(echoSession).ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if tc.wantBody != "" && rec.Body.String() != tc.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, _ := ts.Generate("sess-2")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	rec := httptest.NewRecorder()
	OptionalAuth(ts)(echoSession).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "-" {
		t.Errorf("anonymous: status=%d body=%q, want 200 and \"-\"", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set("Authorization", "Bearer "+valid)
	rec = httptest.NewRecorder()
	OptionalAuth(ts)(echoSession).ServeHTTP(rec, req)
	if rec.Body.String() != "sess-2" {
		t.Errorf("authenticated: body = %q, want sess-2", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	OptionalAuth(ts)(echoSession).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "-" {
		t.Errorf("invalid token: status=%d body=%q, want 200 and \"-\"", rec.Code, rec.Body.String())
	}
}
