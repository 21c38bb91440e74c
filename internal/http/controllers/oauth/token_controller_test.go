package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oliverbravery/OpenAuth/internal/http/dto"
	svc "github.com/oliverbravery/OpenAuth/internal/http/services/oauth"
)

type stubTokenService struct {
	pair *svc.TokenPair
	err  error
}

func (s *stubTokenService) ExchangeAuthorizationCode(context.Context, dto.TokenRequest) (*svc.TokenPair, error) {
	return s.pair, s.err
}

func (s *stubTokenService) ExchangeRefreshToken(context.Context, string) (*svc.TokenPair, error) {
	return s.pair, s.err
}

func postToken(t *testing.T, s svc.TokenService, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	c := NewTokenController(s)
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	c.Token(rec, req)
	return rec
}

func TestTokenSuccessResponseShape(t *testing.T) {
	stub := &stubTokenService{pair: &svc.TokenPair{
		AccessToken:  "acc-123",
		RefreshToken: "ref-456",
		ExpiresIn:    600,
	}}
	rec := postToken(t, stub, url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {"x"},
		"code_verifier": {"y"},
		"client_id":     {"app1"},
		"client_secret": {"s"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var resp dto.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "acc-123", resp.AccessToken)
	assert.Equal(t, "ref-456", resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(600), resp.ExpiresIn)
}

func TestTokenErrorResponseShape(t *testing.T) {
	stub := &stubTokenService{err: svc.ErrInvalidGrant}
	rec := postToken(t, stub, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {"stale"},
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_grant", body.Error)
	assert.NotEmpty(t, body.Description)
}

func TestTokenUnsupportedGrantType(t *testing.T) {
	rec := postToken(t, &stubTokenService{}, url.Values{"grant_type": {"password"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unsupported_grant_type", body.Error)
}
