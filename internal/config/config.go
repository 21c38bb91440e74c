// Package config carga la configuración YAML del servicio, aplica defaults y
// overrides por variables de entorno, y valida antes de arrancar.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Storage struct {
		Driver   string `yaml:"driver"` // memory | postgres
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			MinConns        int    `yaml:"min_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	// AuthzStore guarda el registro transitorio de autorización.
	AuthzStore struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"authz_store"`

	JWT struct {
		Issuer         string `yaml:"issuer"`
		AccessTTL      string `yaml:"access_ttl"`
		RefreshTTL     string `yaml:"refresh_ttl"`
		StateTTL       string `yaml:"state_ttl"`
		PrivateKeyPath string `yaml:"private_key_path"`
		PublicKeyPath  string `yaml:"public_key_path"`
	} `yaml:"jwt"`

	AuthCode struct {
		// Key: base64(32 bytes) para cifrar los authorization codes.
		Key string `yaml:"key"`
	} `yaml:"auth_code"`

	Captcha struct {
		Enabled   bool   `yaml:"enabled"`
		VerifyURL string `yaml:"verify_url"`
		Secret    string `yaml:"secret"`
		Timeout   string `yaml:"timeout"`
	} `yaml:"captcha"`

	Bootstrap struct {
		// ClientModelPath: JSON con el modelo del cliente por defecto.
		// Credenciales por env (BOOTSTRAP_CLIENT_ID / BOOTSTRAP_CLIENT_SECRET).
		ClientModelPath string `yaml:"client_model_path"`
	} `yaml:"bootstrap"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.AuthzStore.Kind == "" {
		c.AuthzStore.Kind = "memory"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "auth-service"
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "10m"
	}
	if c.JWT.RefreshTTL == "" {
		c.JWT.RefreshTTL = "720h" // 30d
	}
	if c.JWT.StateTTL == "" {
		c.JWT.StateTTL = "5m"
	}
	if c.Captcha.Timeout == "" {
		c.Captcha.Timeout = "5s"
	}

	// Overrides por env + validación
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	// Rutas relativas respecto al directorio del YAML
	base := filepath.Dir(path)
	c.JWT.PrivateKeyPath = resolvePath(base, c.JWT.PrivateKeyPath)
	c.JWT.PublicKeyPath = resolvePath(base, c.JWT.PublicKeyPath)
	c.Bootstrap.ClientModelPath = resolvePath(base, c.Bootstrap.ClientModelPath)

	return &c, nil
}

// Validate chequea duraciones y relaciones entre TTLs.
func (c *Config) Validate() error {
	access, err := time.ParseDuration(c.JWT.AccessTTL)
	if err != nil {
		return fmt.Errorf("config: jwt.access_ttl: %w", err)
	}
	refresh, err := time.ParseDuration(c.JWT.RefreshTTL)
	if err != nil {
		return fmt.Errorf("config: jwt.refresh_ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.JWT.StateTTL); err != nil {
		return fmt.Errorf("config: jwt.state_ttl: %w", err)
	}
	if refresh <= access {
		return fmt.Errorf("config: jwt.refresh_ttl (%s) must exceed access_ttl (%s)", c.JWT.RefreshTTL, c.JWT.AccessTTL)
	}
	if c.Storage.Postgres.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime); err != nil {
			return fmt.Errorf("config: storage.postgres.conn_max_lifetime: %w", err)
		}
	}
	if c.Captcha.Timeout != "" {
		if _, err := time.ParseDuration(c.Captcha.Timeout); err != nil {
			return fmt.Errorf("config: captcha.timeout: %w", err)
		}
	}
	if c.Storage.Driver == "postgres" && strings.TrimSpace(c.Storage.DSN) == "" {
		return fmt.Errorf("config: storage.driver=postgres requires storage.dsn")
	}
	if c.AuthzStore.Kind == "redis" && strings.TrimSpace(c.AuthzStore.Redis.Addr) == "" {
		return fmt.Errorf("config: authz_store.kind=redis requires authz_store.redis.addr")
	}
	if c.Captcha.Enabled {
		if strings.TrimSpace(c.Captcha.VerifyURL) == "" || strings.TrimSpace(c.Captcha.Secret) == "" {
			return fmt.Errorf("config: captcha.enabled requires verify_url and secret")
		}
	}
	return nil
}

// Las duraciones ya pasaron Validate; un panic acá sería bug de Load.
func (c *Config) AccessTTL() time.Duration     { return mustDur(c.JWT.AccessTTL) }
func (c *Config) RefreshTTL() time.Duration    { return mustDur(c.JWT.RefreshTTL) }
func (c *Config) StateTTL() time.Duration      { return mustDur(c.JWT.StateTTL) }
func (c *Config) CaptchaTimeout() time.Duration { return mustDur(c.Captcha.Timeout) }

func mustDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(fmt.Sprintf("config: unvalidated duration %q", s))
	}
	return d
}

func resolvePath(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides pisa el YAML con variables de entorno. Los secretos
// (DSN, key de auth codes, secret de captcha) normalmente llegan por acá.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("AUTHZ_STORE_KIND"); ok {
		c.AuthzStore.Kind = v
	}
	if v, ok := getEnvStr("AUTHZ_REDIS_ADDR"); ok {
		c.AuthzStore.Redis.Addr = v
	}
	if v, ok := getEnvInt("AUTHZ_REDIS_DB"); ok {
		c.AuthzStore.Redis.DB = v
	}
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = v
	}
	if v, ok := getEnvStr("JWT_REFRESH_TTL"); ok {
		c.JWT.RefreshTTL = v
	}
	if v, ok := getEnvStr("JWT_PRIVATE_KEY_PATH"); ok {
		c.JWT.PrivateKeyPath = v
	}
	if v, ok := getEnvStr("JWT_PUBLIC_KEY_PATH"); ok {
		c.JWT.PublicKeyPath = v
	}
	if v, ok := getEnvStr("AUTH_CODE_KEY"); ok {
		c.AuthCode.Key = v
	}
	if v, ok := getEnvBool("CAPTCHA_ENABLED"); ok {
		c.Captcha.Enabled = v
	}
	if v, ok := getEnvStr("CAPTCHA_VERIFY_URL"); ok {
		c.Captcha.VerifyURL = v
	}
	if v, ok := getEnvStr("CAPTCHA_SECRET"); ok {
		c.Captcha.Secret = v
	}
	if v, ok := getEnvStr("BOOTSTRAP_CLIENT_MODEL_PATH"); ok {
		c.Bootstrap.ClientModelPath = v
	}
}
