// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/yomira-import/internal/platform/middleware"
	"github.com/taibuivan/yomira-import/internal/platform/sec"
)

// stubVerifier accepts a fixed set of tokens.
type stubVerifier map[string]*sec.AuthClaims

func (stub stubVerifier) VerifyToken(token string) (*sec.AuthClaims, error) {
	if claims, ok := stub[token]; ok {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

/*
TestAuthenticateRequireRole runs the full authz chain as mounted for import routes.
*/
func TestAuthenticateRequireRole(t *testing.T) {
	verifier := stubVerifier{
		"author-token": {UserID: "u1", Role: string(sec.RoleAuthor)},
		"member-token": {UserID: "u2", Role: string(sec.RoleMember)},
		"admin-token":  {UserID: "u3", Role: string(sec.RoleAdmin)},
	}
	ok := http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
	chain := middleware.Authenticate(verifier)(middleware.RequireRole(sec.RoleAuthor)(ok))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"malformed_header", "Token author-token", http.StatusUnauthorized},
		{"unknown_token", "Bearer forged", http.StatusUnauthorized},
		{"member", "Bearer member-token", http.StatusForbidden},
		{"author", "Bearer author-token", http.StatusOK},
		{"admin_outranks_author", "Bearer admin-token", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodPost, "/api/v1/import/upload", nil)
			if tt.header != "" {
				request.Header.Set("Authorization", tt.header)
			}
			recorder := httptest.NewRecorder()
			chain.ServeHTTP(recorder, request)
			assert.Equal(t, tt.want, recorder.Code)
		})
	}
}
