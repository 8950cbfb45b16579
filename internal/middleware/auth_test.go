// internal/middleware/auth_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"course_progress_engine/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func Test_JWTAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{SecretKey: testSecret}}
	userID := uuid.New()

	// ミドルウェア通過後にコンテキストのユーザーIDを記録するハンドラ
	var gotUserID uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := GetUserIDFromContext(r.Context())
		require.NoError(t, err)
		gotUserID = id
		w.WriteHeader(http.StatusOK)
	})
	handler := JWTAuthMiddleware(cfg)(next)

	tests := []struct {
		name       string
		authHeader string
		wantCode   int
	}{
		{
			name: "正常系: 有効なトークンでユーザーIDがコンテキストに入る",
			authHeader: "Bearer " + signToken(t, testSecret, jwt.MapClaims{
				"sub": userID.String(),
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			wantCode: http.StatusOK,
		},
		{
			name:       "異常系: Authorizationヘッダーなし",
			authHeader: "",
			wantCode:   http.StatusForbidden,
		},
		{
			name:       "異常系: Bearer形式でない",
			authHeader: "Basic abc123",
			wantCode:   http.StatusForbidden,
		},
		{
			name: "異常系: 署名キーが異なる",
			authHeader: "Bearer " + signToken(t, "wrong-secret", jwt.MapClaims{
				"sub": userID.String(),
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			wantCode: http.StatusForbidden,
		},
		{
			name: "異常系: 有効期限切れ",
			authHeader: "Bearer " + signToken(t, testSecret, jwt.MapClaims{
				"sub": userID.String(),
				"exp": time.Now().Add(-time.Hour).Unix(),
			}),
			wantCode: http.StatusForbidden,
		},
		{
			name: "異常系: subがUUIDでない",
			authHeader: "Bearer " + signToken(t, testSecret, jwt.MapClaims{
				"sub": "not-a-uuid",
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			wantCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUserID = uuid.Nil
			req := httptest.NewRequest(http.MethodGet, "/api/v1/progress", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, userID, gotUserID)
			}
		})
	}
}
