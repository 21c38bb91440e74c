package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/oliverbravery/OpenAuth/internal/bootstrap"
	"github.com/oliverbravery/OpenAuth/internal/captcha"
	"github.com/oliverbravery/OpenAuth/internal/config"
	httpx "github.com/oliverbravery/OpenAuth/internal/http"
	accountctrl "github.com/oliverbravery/OpenAuth/internal/http/controllers/account"
	oauthctrl "github.com/oliverbravery/OpenAuth/internal/http/controllers/oauth"
	"github.com/oliverbravery/OpenAuth/internal/http/router"
	accountsvc "github.com/oliverbravery/OpenAuth/internal/http/services/account"
	oauthsvc "github.com/oliverbravery/OpenAuth/internal/http/services/oauth"
	jwtx "github.com/oliverbravery/OpenAuth/internal/jwt"
	"github.com/oliverbravery/OpenAuth/internal/metrics"
	"github.com/oliverbravery/OpenAuth/internal/observability/logger"
	"github.com/oliverbravery/OpenAuth/internal/profile"
	"github.com/oliverbravery/OpenAuth/internal/scope"
	"github.com/oliverbravery/OpenAuth/internal/security/secretbox"
	"github.com/oliverbravery/OpenAuth/internal/store"
	_ "github.com/oliverbravery/OpenAuth/internal/store/drivers"
)

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func main() {
	var (
		flagConfigPath = flag.String("config", "", "ruta a config.yaml (fallback: $CONFIG_PATH o configs/config.yaml)")
		flagEnvFile    = flag.String("env-file", ".env", "ruta a .env (si existe, se carga)")
	)
	flag.Parse()

	if *flagEnvFile != "" && fileExists(*flagEnvFile) {
		if err := godotenv.Load(*flagEnvFile); err == nil {
			log.Printf("dotenv: cargado %s", *flagEnvFile)
		}
	}

	cfgPath := *flagConfigPath
	if cfgPath == "" {
		cfgPath = os.Getenv("CONFIG_PATH")
	}
	if cfgPath == "" {
		if fileExists("configs/config.yaml") {
			cfgPath = "configs/config.yaml"
		} else {
			cfgPath = "configs/config.example.yaml"
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       getenv("LOG_LEVEL", "info"),
		ServiceName: "openauth",
	})
	defer logger.Sync()
	lg := logger.L()

	ctx := context.Background()

	// --- Stores (cuentas/clientes + registro de autorización) ---
	storeCfg := store.Config{
		Driver:    cfg.Storage.Driver,
		DSN:       cfg.Storage.DSN,
		AuthzKind: cfg.AuthzStore.Kind,
		AuthzTTL:  cfg.RefreshTTL(),
	}
	storeCfg.Postgres.MaxConns = cfg.Storage.Postgres.MaxConns
	storeCfg.Postgres.MinConns = cfg.Storage.Postgres.MinConns
	storeCfg.Postgres.ConnMaxLifetime = cfg.Storage.Postgres.ConnMaxLifetime
	storeCfg.Redis.Addr = cfg.AuthzStore.Redis.Addr
	storeCfg.Redis.DB = cfg.AuthzStore.Redis.DB
	storeCfg.Redis.Prefix = cfg.AuthzStore.Redis.Prefix

	stores, closeStores, err := store.Open(ctx, storeCfg)
	if err != nil {
		lg.Fatal("store open", logger.Err(err))
	}
	defer func() {
		if err := closeStores(); err != nil {
			lg.Warn("store close", logger.Err(err))
		}
	}()

	// --- Firma JWT ---
	tokens, err := jwtx.NewManagerFromFiles(
		cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath,
		cfg.AccessTTL(), cfg.RefreshTTL(),
	)
	if err != nil {
		lg.Fatal("jwt keys", logger.Err(err))
	}
	tokens.WithIssuer(cfg.JWT.Issuer).WithStateTTL(cfg.StateTTL())

	// --- Cifrado de authorization codes ---
	codeBox, err := secretbox.New(cfg.AuthCode.Key)
	if err != nil {
		lg.Fatal("auth code key", logger.Err(err))
	}

	// --- Captcha ---
	var verifier captcha.Verifier = captcha.Disabled{}
	if cfg.Captcha.Enabled {
		verifier = captcha.NewHTTPVerifier(cfg.Captcha.VerifyURL, cfg.Captcha.Secret, cfg.CaptchaTimeout())
	}

	// --- Seeding del cliente por defecto ---
	if err := bootstrap.SeedDefaultClient(ctx, bootstrap.ClientConfig{
		Clients:      stores.Clients,
		ModelPath:    cfg.Bootstrap.ClientModelPath,
		ClientID:     os.Getenv("BOOTSTRAP_CLIENT_ID"),
		ClientSecret: os.Getenv("BOOTSTRAP_CLIENT_SECRET"),
	}); err != nil {
		lg.Fatal("bootstrap client", logger.Err(err))
	}

	// --- Métricas ---
	metricsHandler, err := metrics.Register(prometheus.DefaultRegisterer)
	if err != nil {
		lg.Fatal("metrics", logger.Err(err))
	}

	// --- Servicios ---
	resolver := scope.NewResolver(stores.Clients)
	profiles := profile.NewService(profile.Deps{
		Accounts: stores.Accounts,
		Clients:  stores.Clients,
		Resolver: resolver,
	})
	authorizeSvc := oauthsvc.NewAuthorizeService(oauthsvc.AuthorizeDeps{
		Clients:  stores.Clients,
		Resolver: resolver,
	})
	loginSvc := oauthsvc.NewLoginService(oauthsvc.LoginDeps{
		Accounts: stores.Accounts,
		Resolver: resolver,
		Profiles: profiles,
		Captcha:  verifier,
		Tokens:   tokens,
	})
	consentSvc := oauthsvc.NewConsentService(oauthsvc.ConsentDeps{
		Clients:        stores.Clients,
		Authorizations: stores.Authorizations,
		Profiles:       profiles,
		Tokens:         tokens,
		CodeBox:        codeBox,
	})
	tokenSvc := oauthsvc.NewTokenService(oauthsvc.TokenDeps{
		Clients:        stores.Clients,
		Authorizations: stores.Authorizations,
		Tokens:         tokens,
		CodeBox:        codeBox,
	})
	accountSvc := accountsvc.NewService(accountsvc.Deps{
		Accounts: stores.Accounts,
		Clients:  stores.Clients,
	})

	handler := router.New(router.Deps{
		Authorize:      oauthctrl.NewAuthorizeController(authorizeSvc),
		Login:          oauthctrl.NewLoginController(loginSvc),
		Consent:        oauthctrl.NewConsentController(consentSvc),
		Token:          oauthctrl.NewTokenController(tokenSvc),
		JWKS:           oauthctrl.NewJWKSController(tokens),
		Account:        accountctrl.NewController(accountSvc),
		Tokens:         tokens,
		MetricsHandler: metricsHandler,
		Ready:          func() bool { return true },
	})

	srv := httpx.NewServer(cfg.Server.Addr, handler)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	lg.Info("service up",
		logger.String("addr", cfg.Server.Addr),
		logger.String("env", cfg.App.Env),
		logger.String("storage", cfg.Storage.Driver),
	)
	if err := g.Wait(); err != nil {
		lg.Fatal("service", logger.Err(err))
	}
	lg.Info("service stopped")
}
