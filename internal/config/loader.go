// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one `Config` struct from four layers (highest precedence
last):

  1. Optional `.env` file, first `<root>/conf/.env`, then `<cwd>/.env`.
  2. Optional `conf/inbox.yaml`.
  3. Legacy variables from the first deployment (`PORT`, `NODE_ENV`,
     `JWT_SECRET`, `ADMIN_PASSWORD`, `DB_HOST`, …).
  4. Environment variables prefixed `INBOX_`, where `__` maps to “.”
     (e.g., `INBOX_AUTH__JWT_SECRET → auth.jwt_secret`).

After merging, the tree is unmarshalled into typed structs, defaults fill
any zero value, `vault:` references are resolved, the MySQL DSN is
assembled, and the struct is validated.  The caller owns the result; there
is no package-level copy.

Instrumentation
---------------
  • DEBUG spans, root discovery and YAML read.
  • Insecure fallbacks are listed in `Config.Fallbacks`; main logs them
    at WARN once the file logger is up.
  • INFO  span, final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface before the file logger is installed.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/inbox/internal/vault"
)

// Insecure fallbacks.  They keep a fresh checkout operable and are called
// out at WARN on every boot that relies on them.
const (
	FallbackAdminPassword = "admin123"
	FallbackJWTSecret     = "your_fallback_secret_key"
)

const (
	envPrefix   = "INBOX_"
	yamlName    = "inbox.yaml"
	vaultPrefix = "vault:"
)

// DefaultAllowedOrigins is the browser allow-list shipped with the first
// release.
var DefaultAllowedOrigins = []string{
	"https://davidadebanwo.com",
	"https://www.davidadebanwo.com",
	"https://emmanueladama.com",
	"https://www.emmanueladama.com",
	"http://localhost:3000",
	"http://localhost:5500",
	"http://localhost:5173",
}

// DefaultSources is the portfolio list shipped with the first release.
var DefaultSources = []string{"davidadebanwo.com", "emmanueladama.com"}

// sliceKeys are split on commas when they arrive through env vars.
var sliceKeys = map[string]bool{
	"http.allowed_origins": true,
	"sources.known":        true,
}

// legacyKeys maps the first deployment's variable names onto koanf keys.
var legacyKeys = map[string]string{
	"NODE_ENV":       "env",
	"PORT":           "http.listen_addr",
	"ADMIN_PASSWORD": "auth.admin_password",
	"JWT_SECRET":     "auth.jwt_secret",
	"DB_HOST":        "database.host",
	"DB_PORT":        "database.port",
	"DB_USER":        "database.user",
	"DB_PASSWORD":    "database.password",
	"DB_NAME":        "database.name",
}

// SecretResolver turns a `vault:` reference into its plain value.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// ResolverFactory builds a SecretResolver.  Load calls it only when at
// least one value carries the `vault:` prefix, so deployments without Vault
// never dial it.
type ResolverFactory func(ctx context.Context) (SecretResolver, error)

func vaultResolver(ctx context.Context) (SecretResolver, error) {
	return vault.New(ctx, zap.S().Infof)
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves INBOX_ROOT or climbs directories until conf/inbox.yaml
// is found.  Falls back to the working directory.
func rootDir() string {
	if r := os.Getenv("INBOX_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", yamlName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, and env overrides, then validates the result.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, rootDir(), vaultResolver)
}

func load(ctx context.Context, root string, newResolver ResolverFactory) (*Config, error) {
	zap.S().Debugw("config root resolved", "root", root)

	// .env files are optional; later files never override earlier ones.
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))
	_ = godotenv.Load()

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", yamlName)
	if _, err := os.Stat(yamlPath); errors.Is(err, fs.ErrNotExist) {
		zap.S().Debugw("config yaml absent", "file", yamlPath)
	} else {
		if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
			zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
			return nil, fmt.Errorf("load %s: %w", yamlPath, err)
		}
		zap.S().Debugw("config yaml loaded", "file", yamlPath)
	}

	if err := k.Load(env.ProviderWithValue("", ".", legacyValue), nil); err != nil {
		return nil, fmt.Errorf("legacy env overlay: %w", err)
	}

	// INBOX_AUTH__JWT_SECRET → auth.jwt_secret
	if err := k.Load(env.ProviderWithValue(envPrefix, ".", prefixedValue), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Paths.Root = root
	applyDefaults(&cfg)

	if err := resolveSecrets(ctx, &cfg, newResolver); err != nil {
		return nil, err
	}

	if cfg.Database.Driver == DriverMySQL && cfg.Database.DSN == "" {
		cfg.Database.DSN = buildDSN(cfg.Database)
	}

	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	zap.S().Infow("config loaded",
		"env", cfg.Env,
		"listen_addr", cfg.HTTP.ListenAddr,
		"driver", cfg.Database.Driver,
		"primary_source", cfg.Sources.Primary,
		"source_policy", cfg.Sources.Policy,
		"fallbacks", len(cfg.Fallbacks),
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── env callbacks ───────────────────────────────*/

func legacyValue(key, value string) (string, any) {
	target, ok := legacyKeys[key]
	if !ok || value == "" {
		return "", nil
	}
	if key == "PORT" && !strings.Contains(value, ":") {
		value = ":" + value
	}
	return target, value
}

func prefixedValue(key, value string) (string, any) {
	if value == "" {
		return "", nil
	}
	name := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, envPrefix), "__", "."))
	if sliceKeys[name] {
		return name, splitList(value)
	}
	return name, value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

/*──────────────────────────── defaults ────────────────────────────────────*/

// applyDefaults fills zero values.  Secrets that fall back are recorded.
func applyDefaults(c *Config) {
	if c.Env == "" {
		c.Env = EnvProduction
	}

	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = ":5000"
	}
	if len(c.HTTP.AllowedOrigins) == 0 {
		c.HTTP.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	}
	if c.HTTP.RequestTimeout == 0 {
		c.HTTP.RequestTimeout = 30 * time.Second
	}

	if c.Auth.AdminPassword == "" {
		c.Auth.AdminPassword = FallbackAdminPassword
		c.Fallbacks = append(c.Fallbacks, "auth.admin_password")
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = FallbackJWTSecret
		c.Fallbacks = append(c.Fallbacks, "auth.jwt_secret")
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "inbox"
	}

	db := &c.Database
	if db.Driver == "" {
		db.Driver = DriverMySQL
	}
	if db.Host == "" {
		db.Host = "localhost"
	}
	if db.Port == 0 {
		db.Port = 3306
	}
	if db.User == "" {
		db.User = "root"
	}
	if db.Name == "" {
		db.Name = "portfolio_db"
	}
	if db.MaxOpenConns == 0 {
		db.MaxOpenConns = 5
	}
	if db.MaxIdleConns == 0 {
		db.MaxIdleConns = 2
	}
	if db.ConnectRetries == 0 {
		db.ConnectRetries = 3
	}
	if db.RetryBackoff == 0 {
		db.RetryBackoff = time.Second
	}

	if c.Sources.Primary == "" {
		c.Sources.Primary = DefaultSources[0]
	}
	if len(c.Sources.Known) == 0 {
		c.Sources.Known = append([]string(nil), DefaultSources...)
	}
	if c.Sources.Policy == "" {
		c.Sources.Policy = PolicyLenient
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// buildDSN assembles a MySQL DSN from discrete parts.
func buildDSN(d Database) string {
	mc := mysql.NewConfig()
	mc.User = d.User
	mc.Passwd = d.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	mc.DBName = d.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	return mc.FormatDSN()
}

/*──────────────────────────── vault references ────────────────────────────*/

// resolveSecrets replaces every `vault:` value among the secret-bearing
// fields.  The resolver is built lazily.
func resolveSecrets(ctx context.Context, c *Config, newResolver ResolverFactory) error {
	fields := map[string]*string{
		"auth.admin_password": &c.Auth.AdminPassword,
		"auth.jwt_secret":     &c.Auth.JWTSecret,
		"database.dsn":        &c.Database.DSN,
		"database.password":   &c.Database.Password,
		"sentry.dsn":          &c.Sentry.DSN,
	}

	var res SecretResolver
	for key, ptr := range fields {
		if !strings.HasPrefix(*ptr, vaultPrefix) {
			continue
		}
		if res == nil {
			r, err := newResolver(ctx)
			if err != nil {
				return fmt.Errorf("vault client for %s: %w", key, err)
			}
			res = r
		}
		val, err := res.Resolve(ctx, strings.TrimPrefix(*ptr, vaultPrefix))
		if err != nil {
			zap.S().Errorw("vault reference failed", "key", key, "err", err)
			return fmt.Errorf("resolve %s: %w", key, err)
		}
		*ptr = val
		zap.S().Debugw("vault reference resolved", "key", key)
	}
	return nil
}
