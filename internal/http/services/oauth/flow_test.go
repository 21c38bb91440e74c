package oauth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/oliverbravery/OpenAuth/internal/captcha"
	"github.com/oliverbravery/OpenAuth/internal/domain"
	"github.com/oliverbravery/OpenAuth/internal/http/dto"
	jwtx "github.com/oliverbravery/OpenAuth/internal/jwt"
	"github.com/oliverbravery/OpenAuth/internal/observability/logger"
	"github.com/oliverbravery/OpenAuth/internal/profile"
	"github.com/oliverbravery/OpenAuth/internal/scope"
	"github.com/oliverbravery/OpenAuth/internal/security/password"
	"github.com/oliverbravery/OpenAuth/internal/security/secretbox"
	tokens "github.com/oliverbravery/OpenAuth/internal/security/token"
	"github.com/oliverbravery/OpenAuth/internal/store"
	"github.com/oliverbravery/OpenAuth/internal/store/memory"
)

const (
	testVerifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	clientSecret = "client-s3cret"
	userPassword = "alice-passw0rd"
)

var (
	flowKeyOnce sync.Once
	flowKey     *rsa.PrivateKey
)

// fixture arma el flujo completo sobre stores en memoria, con un reloj
// manual para poder avanzar el tiempo entre emisiones.
type fixture struct {
	authorize AuthorizeService
	login     LoginService
	consent   ConsentService
	token     TokenService

	accounts store.AccountStore
	authz    store.AuthorizationStore
	clock    *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	flowKeyOnce.Do(func() {
		var err error
		flowKey, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generate key: %v", err)
		}
	})

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mgr, err := jwtx.NewManager(flowKey, &flowKey.PublicKey, 10*time.Minute, time.Hour)
	require.NoError(t, err)
	mgr.WithClock(func() time.Time { return now })

	key := make([]byte, 32)
	_, err = rand.Read(key)
	require.NoError(t, err)
	box, err := secretbox.NewFromBytes(key)
	require.NoError(t, err)

	accounts := memory.NewAccountStore()
	clients := memory.NewClientStore()
	authz := memory.NewAuthorizationStore(0)

	passHash, err := password.Hash(userPassword)
	require.NoError(t, err)
	require.NoError(t, accounts.Put(ctx, &domain.Account{
		Username:       "alice",
		DisplayName:    "Alice",
		Email:          "alice@example.com",
		HashedPassword: passHash,
	}))

	secretHash, err := password.Hash(clientSecret)
	require.NoError(t, err)
	require.NoError(t, clients.Put(ctx, &domain.Client{
		ClientID:         "app1",
		ClientSecretHash: secretHash,
		Name:             "App One",
		Description:      "test client",
		RedirectURI:      "https://app.example.com/callback",
		Scopes: []domain.ClientScope{
			{
				Name:        "profile:read",
				Description: "read profile",
				AccountAttributes: []domain.ScopeAttribute{
					{Name: "display_name", Access: domain.AccessRead},
				},
			},
		},
	}))

	resolver := scope.NewResolver(clients)
	profiles := profile.NewService(profile.Deps{
		Accounts: accounts,
		Clients:  clients,
		Resolver: resolver,
	})

	return &fixture{
		authorize: NewAuthorizeService(AuthorizeDeps{Clients: clients, Resolver: resolver}),
		login: NewLoginService(LoginDeps{
			Accounts: accounts,
			Resolver: resolver,
			Profiles: profiles,
			Captcha:  captcha.Disabled{},
			Tokens:   mgr,
		}),
		consent: NewConsentService(ConsentDeps{
			Clients:        clients,
			Authorizations: authz,
			Profiles:       profiles,
			Tokens:         mgr,
			CodeBox:        box,
		}),
		token: NewTokenService(TokenDeps{
			Clients:        clients,
			Authorizations: authz,
			Tokens:         mgr,
			CodeBox:        box,
		}),
		accounts: accounts,
		authz:    authz,
		clock:    &now,
	}
}

func (f *fixture) advance(d time.Duration) { *f.clock = f.clock.Add(d) }

func authorizeReq() dto.AuthorizeRequest {
	return dto.AuthorizeRequest{
		ClientID:      "app1",
		ClientSecret:  clientSecret,
		ResponseType:  "code",
		State:         "csrf-123",
		CodeChallenge: tokens.SHA256Base64URL(testVerifier),
		Scope:         "app1.profile:read",
	}
}

// runToCode corre authorize→login→consent y devuelve el code emitido.
func runToCode(t *testing.T, f *fixture) string {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.authorize.Authorize(ctx, authorizeReq()))

	res, err := f.login.Login(ctx, dto.LoginRequest{
		Username:         "alice",
		Password:         userPassword,
		AuthorizeRequest: authorizeReq(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.StateToken)
	require.NotNil(t, res.Consent)

	redirect, err := f.consent.Consent(ctx, dto.ConsentRequest{
		Accept:           true,
		StateToken:       res.StateToken,
		AuthorizeRequest: authorizeReq(),
	})
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", u.Host)
	assert.Equal(t, "csrf-123", u.Query().Get("state"))
	code := u.Query().Get("code")
	require.NotEmpty(t, code)
	return code
}

func TestFullAuthorizationCodeFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := runToCode(t, f)

	pair, err := f.token.ExchangeAuthorizationCode(ctx, dto.TokenRequest{
		GrantType:    "authorization_code",
		Code:         code,
		CodeVerifier: testVerifier,
		ClientID:     "app1",
		ClientSecret: clientSecret,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(600), pair.ExpiresIn)

	// El registro guarda los hashes del último par emitido.
	rec, err := f.authz.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, tokens.SHA256Base64URL(pair.AccessToken), rec.HashedAccessToken)
	assert.Equal(t, tokens.SHA256Base64URL(pair.RefreshToken), rec.HashedRefreshToken)
	assert.Empty(t, rec.AuthCode)
	assert.Empty(t, rec.CodeChallenge)
}

func TestAuthorizationCodeIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := runToCode(t, f)

	req := dto.TokenRequest{
		Code:         code,
		CodeVerifier: testVerifier,
		ClientID:     "app1",
		ClientSecret: clientSecret,
	}
	_, err := f.token.ExchangeAuthorizationCode(ctx, req)
	require.NoError(t, err)

	_, err = f.token.ExchangeAuthorizationCode(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestExchangeRejectsWrongVerifier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := runToCode(t, f)

	_, err := f.token.ExchangeAuthorizationCode(ctx, dto.TokenRequest{
		Code:         code,
		CodeVerifier: "otro-verifier-cualquiera-de-43-caracteres-x",
		ClientID:     "app1",
		ClientSecret: clientSecret,
	})
	assert.ErrorIs(t, err, ErrInvalidGrant)

	// El code sigue vivo: el fallo de PKCE no lo consume.
	_, err = f.token.ExchangeAuthorizationCode(ctx, dto.TokenRequest{
		Code:         code,
		CodeVerifier: testVerifier,
		ClientID:     "app1",
		ClientSecret: clientSecret,
	})
	assert.NoError(t, err)
}

func TestExchangeRejectsBadClientCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := runToCode(t, f)

	_, err := f.token.ExchangeAuthorizationCode(ctx, dto.TokenRequest{
		Code:         code,
		CodeVerifier: testVerifier,
		ClientID:     "app1",
		ClientSecret: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidClient)

	_, err = f.token.ExchangeAuthorizationCode(ctx, dto.TokenRequest{
		Code:         code,
		CodeVerifier: testVerifier,
		ClientID:     "no-such-client",
		ClientSecret: clientSecret,
	})
	assert.ErrorIs(t, err, ErrInvalidClient)
}

func TestExchangeRejectsGarbageCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.token.ExchangeAuthorizationCode(ctx, dto.TokenRequest{
		Code:         "bm8tZXMtdW4tY29kZQ",
		CodeVerifier: testVerifier,
		ClientID:     "app1",
		ClientSecret: clientSecret,
	})
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestRefreshRotationAndReplayRevocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := runToCode(t, f)

	pair1, err := f.token.ExchangeAuthorizationCode(ctx, dto.TokenRequest{
		Code:         code,
		CodeVerifier: testVerifier,
		ClientID:     "app1",
		ClientSecret: clientSecret,
	})
	require.NoError(t, err)

	// Rotación normal: el par nuevo reemplaza al anterior.
	f.advance(time.Minute)
	pair2, err := f.token.ExchangeRefreshToken(ctx, pair1.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair1.RefreshToken, pair2.RefreshToken)

	// Replay del refresh viejo: firmado y vigente, pero ya no es el último.
	// Revoca la familia completa.
	f.advance(time.Minute)
	_, err = f.token.ExchangeRefreshToken(ctx, pair1.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidGrant)

	// El último emitido también quedó revocado.
	_, err = f.token.ExchangeRefreshToken(ctx, pair2.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

// flakyAuthzStore deja fallar los Upsert a demanda, para simular un store
// que rechaza escrituras en el momento de la revocación.
type flakyAuthzStore struct {
	store.AuthorizationStore
	failUpserts bool
}

var errStoreDown = fmt.Errorf("authz store: write unavailable")

func (s *flakyAuthzStore) Upsert(ctx context.Context, a *domain.Authorization) error {
	if s.failUpserts {
		return errStoreDown
	}
	return s.AuthorizationStore.Upsert(ctx, a)
}

func TestReplayRevocationWriteFailureIsLoggedAndStillRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inner := f.token.(*tokenService)
	flaky := &flakyAuthzStore{AuthorizationStore: inner.authz}
	svc := NewTokenService(TokenDeps{
		Clients:        inner.clients,
		Authorizations: flaky,
		Tokens:         inner.tokens,
		CodeBox:        inner.codeBox,
	})

	code := runToCode(t, f)
	pair1, err := svc.ExchangeAuthorizationCode(ctx, dto.TokenRequest{
		Code:         code,
		CodeVerifier: testVerifier,
		ClientID:     "app1",
		ClientSecret: clientSecret,
	})
	require.NoError(t, err)

	f.advance(time.Minute)
	pair2, err := svc.ExchangeRefreshToken(ctx, pair1.RefreshToken)
	require.NoError(t, err)

	// El store deja de aceptar escrituras justo cuando llega el replay.
	flaky.failUpserts = true
	core, logs := observer.New(zapcore.WarnLevel)
	logCtx := logger.ToContext(ctx, zap.New(core))

	f.advance(time.Minute)
	_, err = svc.ExchangeRefreshToken(logCtx, pair1.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidGrant)

	// La revocación no se pudo persistir: el log lo dice explícitamente, en
	// Error, no el Warn de "family revoked".
	failed := logs.FilterMessage("refresh token replay detected but family revocation failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.ErrorLevel, failed[0].Level)
	assert.Empty(t, logs.FilterMessage("refresh token replay detected, family revoked").All())

	// Y efectivamente el último refresh emitido sigue vivo en el store.
	rec, err := f.authz.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, tokens.SHA256Base64URL(pair2.RefreshToken), rec.HashedRefreshToken)
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := runToCode(t, f)

	pair, err := f.token.ExchangeAuthorizationCode(ctx, dto.TokenRequest{
		Code:         code,
		CodeVerifier: testVerifier,
		ClientID:     "app1",
		ClientSecret: clientSecret,
	})
	require.NoError(t, err)

	f.advance(2 * time.Hour) // refresh TTL es 1h
	_, err = f.token.ExchangeRefreshToken(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestRefreshRejectsAccessTokenAsRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := runToCode(t, f)

	pair, err := f.token.ExchangeAuthorizationCode(ctx, dto.TokenRequest{
		Code:         code,
		CodeVerifier: testVerifier,
		ClientID:     "app1",
		ClientSecret: clientSecret,
	})
	require.NoError(t, err)

	// Un access token tiene otro shape: no pasa como refresh.
	_, err = f.token.ExchangeRefreshToken(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestAuthorizeValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := authorizeReq()
	req.State = ""
	assert.ErrorIs(t, f.authorize.Authorize(ctx, req), ErrMissingParams)

	req = authorizeReq()
	req.ResponseType = "token"
	assert.ErrorIs(t, f.authorize.Authorize(ctx, req), ErrUnsupportedResponse)

	req = authorizeReq()
	req.CodeChallenge = ""
	assert.ErrorIs(t, f.authorize.Authorize(ctx, req), ErrPKCERequired)

	req = authorizeReq()
	req.ClientSecret = "wrong"
	assert.ErrorIs(t, f.authorize.Authorize(ctx, req), ErrInvalidClient)

	req = authorizeReq()
	req.Scope = "app1.no:existe"
	assert.ErrorIs(t, f.authorize.Authorize(ctx, req), ErrInvalidScope)

	req = authorizeReq()
	req.Scope = "otro-cliente.profile:read"
	assert.ErrorIs(t, f.authorize.Authorize(ctx, req), ErrInvalidScope)
}

func TestLoginRejectsBadCredentialsUniformly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.login.Login(ctx, dto.LoginRequest{
		Username:         "alice",
		Password:         "wrong",
		AuthorizeRequest: authorizeReq(),
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.login.Login(ctx, dto.LoginRequest{
		Username:         "nadie",
		Password:         userPassword,
		AuthorizeRequest: authorizeReq(),
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Un login fallido no deja registro de autorización.
	_, err = f.authz.Get(ctx, "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

type failingCaptcha struct{}

func (failingCaptcha) Verify(context.Context, string) error {
	return captcha.ErrVerificationFailed
}

func TestLoginRejectsFailedCaptcha(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Reconstruir el login service con un verificador que rechaza.
	failing := NewLoginService(LoginDeps{
		Accounts: f.accounts,
		Resolver: nil, // no se llega a resolver scopes
		Profiles: nil,
		Captcha:  failingCaptcha{},
		Tokens:   nil,
	})
	_, err := failing.Login(ctx, dto.LoginRequest{
		Username:         "alice",
		Password:         userPassword,
		AuthorizeRequest: authorizeReq(),
	})
	assert.ErrorIs(t, err, ErrCaptchaFailed)
}

func TestStateTokenDoesNotPassAsAccessToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// El state token de login lleva los scopes pedidos, todavía sin
	// consentir. Si pasara como access token, la API de atributos quedaría
	// abierta antes del consent.
	res, err := f.login.Login(ctx, dto.LoginRequest{
		Username:         "alice",
		Password:         userPassword,
		AuthorizeRequest: authorizeReq(),
	})
	require.NoError(t, err)

	_, err = fixtureManager(f).Verify(res.StateToken, jwtx.KindAccess)
	assert.ErrorIs(t, err, jwtx.ErrWrongKind)
}

func TestAccessTokenDoesNotPassAsStateToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := runToCode(t, f)

	pair, err := f.token.ExchangeAuthorizationCode(ctx, dto.TokenRequest{
		Code:         code,
		CodeVerifier: testVerifier,
		ClientID:     "app1",
		ClientSecret: clientSecret,
	})
	require.NoError(t, err)

	// Un access token robado no prueba un login reciente: no habilita un
	// consent nuevo.
	_, err = f.consent.Consent(ctx, dto.ConsentRequest{
		Accept:           true,
		StateToken:       pair.AccessToken,
		AuthorizeRequest: authorizeReq(),
	})
	assert.ErrorIs(t, err, ErrInvalidStateToken)
}

func TestConsentDenyIssuesNoCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.login.Login(ctx, dto.LoginRequest{
		Username:         "alice",
		Password:         userPassword,
		AuthorizeRequest: authorizeReq(),
	})
	require.NoError(t, err)

	_, err = f.consent.Consent(ctx, dto.ConsentRequest{
		Accept:           false,
		StateToken:       res.StateToken,
		AuthorizeRequest: authorizeReq(),
	})
	assert.ErrorIs(t, err, ErrConsentDenied)

	_, err = f.authz.Get(ctx, "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConsentRejectsStateTokenMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.login.Login(ctx, dto.LoginRequest{
		Username:         "alice",
		Password:         userPassword,
		AuthorizeRequest: authorizeReq(),
	})
	require.NoError(t, err)

	// Scope distinto al que vio el login: el state token no lo cubre.
	req := authorizeReq()
	req.Scope = ""
	_, err = f.consent.Consent(ctx, dto.ConsentRequest{
		Accept:           true,
		StateToken:       res.StateToken,
		AuthorizeRequest: req,
	})
	assert.ErrorIs(t, err, ErrInvalidStateToken)

	// State token vencido.
	f.advance(time.Hour)
	_, err = f.consent.Consent(ctx, dto.ConsentRequest{
		Accept:           true,
		StateToken:       res.StateToken,
		AuthorizeRequest: authorizeReq(),
	})
	assert.ErrorIs(t, err, ErrInvalidStateToken)

	// State token basura.
	_, err = f.consent.Consent(ctx, dto.ConsentRequest{
		Accept:           true,
		StateToken:       "garbage",
		AuthorizeRequest: authorizeReq(),
	})
	assert.ErrorIs(t, err, ErrInvalidStateToken)
}

func TestSecondConsentInvalidatesPendingCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Dos flujos concurrentes del mismo usuario: un slot por usuario, el
	// consent más reciente pisa el code pendiente del anterior.
	code1 := runToCode(t, f)
	f.advance(time.Second)
	code2 := runToCode(t, f)

	_, err := f.token.ExchangeAuthorizationCode(ctx, dto.TokenRequest{
		Code:         code1,
		CodeVerifier: testVerifier,
		ClientID:     "app1",
		ClientSecret: clientSecret,
	})
	assert.ErrorIs(t, err, ErrInvalidGrant)

	_, err = f.token.ExchangeAuthorizationCode(ctx, dto.TokenRequest{
		Code:         code2,
		CodeVerifier: testVerifier,
		ClientID:     "app1",
		ClientSecret: clientSecret,
	})
	assert.NoError(t, err)
}

func TestAccessTokenCarriesConsentedScopes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := runToCode(t, f)

	pair, err := f.token.ExchangeAuthorizationCode(ctx, dto.TokenRequest{
		Code:         code,
		CodeVerifier: testVerifier,
		ClientID:     "app1",
		ClientSecret: clientSecret,
	})
	require.NoError(t, err)

	// Verificar el access token con el mismo manager del fixture.
	mgr := fixtureManager(f)
	claims, err := mgr.Verify(pair.AccessToken, jwtx.KindAccess)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "app1", claims.Audience)
	assert.Equal(t, "app1.profile:read", claims.Scope)

	refreshClaims, err := mgr.Verify(pair.RefreshToken, jwtx.KindRefresh)
	require.NoError(t, err)
	assert.False(t, refreshClaims.HasScope())
}

// fixtureManager recupera el manager embebido en el token service.
func fixtureManager(f *fixture) *jwtx.Manager {
	return f.token.(*tokenService).tokens
}
