package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/ragbase/internal/domain"
	"go.uber.org/zap"
)

type stubValidator struct {
	claims *domain.CustomClaims
	err    error
}

func (s *stubValidator) VerifyToken(string) (*domain.CustomClaims, error) {
	return s.claims, s.err
}

func authedHandler(t *testing.T, v TokenValidator) (http.Handler, *string, *string) {
	t.Helper()
	var gotUser, gotBearer string
	h := NewMiddleware(v, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserID(r.Context())
		gotBearer = BearerToken(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	return h, &gotUser, &gotBearer
}

func TestMiddleware_RejectsWithJSONBody(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		header string
		v      TokenValidator
	}{
		{"missing header", "", &stubValidator{}},
		{"invalid token", "Bearer bad", &stubValidator{err: errors.New("token expired")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h, _, _ := authedHandler(t, tc.v)
			req := httptest.NewRequest(http.MethodGet, "/v1/agents", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, `{"error": "Unauthorized - Please log in"}`, rec.Body.String())
		})
	}
}

func TestMiddleware_PassesIdentityDownstream(t *testing.T) {
	t.Parallel()

	v := &stubValidator{claims: &domain.CustomClaims{UserID: "user-1"}}
	h, gotUser, gotBearer := authedHandler(t, v)

	req := httptest.NewRequest(http.MethodGet, "/v1/agents", nil)
	req.Header.Set("Authorization", "Bearer session-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user-1", *gotUser)
	assert.Equal(t, "session-token", *gotBearer)
}
