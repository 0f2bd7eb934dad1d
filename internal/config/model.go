// internal/config/model.go
//
// Typed configuration model for the inbox service.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from four overlay layers:
//
//   • optional `.env`                          – dotenv values,
//   • optional `conf/inbox.yaml`               – primary static file,
//   • legacy variables (`PORT`, `JWT_SECRET`)  – names the first release used,
//   • `INBOX_`-prefixed environment overrides  – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* validation, so the model never hands
// Vault URIs to callers, only plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • `Paths` and `Fallbacks` are filled at runtime; YAML must not set them.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

// Environment names accepted in `env`.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Source acceptance policies.
const (
	PolicyLenient = "lenient"
	PolicyStrict  = "strict"
)

// Storage drivers.
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr     string        `koanf:"listen_addr"     validate:"required,hostname_port"`
	ForceHTTPS     bool          `koanf:"force_https"`
	AllowedOrigins []string      `koanf:"allowed_origins" validate:"dive,url"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`
}

//
// Auth section
//

// Auth holds the single administrator credential and the token-signing
// secret.  Both have insecure fallbacks so a bare checkout still boots; the
// loader records every fallback in Config.Fallbacks and logs a warning.
type Auth struct {
	AdminPassword string        `koanf:"admin_password" validate:"required"`
	JWTSecret     string        `koanf:"jwt_secret"     validate:"required"`
	TokenTTL      time.Duration `koanf:"token_ttl"      validate:"gt=0"`
	Issuer        string        `koanf:"issuer"         validate:"required"`
}

//
// Database section
//

// Database holds either a full DSN or the discrete parts the original
// deployment used (`DB_HOST`, `DB_USER`, …).  When DSN is empty the loader
// assembles one with mysql.Config so quoting rules stay the driver's.
type Database struct {
	Driver         string        `koanf:"driver"          validate:"oneof=mysql memory"`
	DSN            string        `koanf:"dsn"`
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"            validate:"gte=0,lte=65535"`
	User           string        `koanf:"user"`
	Password       string        `koanf:"password"`
	Name           string        `koanf:"name"`
	MaxOpenConns   int           `koanf:"max_open_conns"  validate:"gte=1"`
	MaxIdleConns   int           `koanf:"max_idle_conns"  validate:"gte=0"`
	ConnectRetries int           `koanf:"connect_retries" validate:"gte=0"`
	RetryBackoff   time.Duration `koanf:"retry_backoff"`
}

//
// Sources section
//

// Sources lists the portfolio domains that submit messages.  Primary is
// the default tag for submissions that omit `source`.
type Sources struct {
	Primary string   `koanf:"primary" validate:"required"`
	Known   []string `koanf:"known"   validate:"dive,required"`
	Policy  string   `koanf:"policy"  validate:"oneof=lenient strict"`
}

//
// Observability sections
//

// Log controls the zap logger.
type Log struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

// GeoIP points at an optional GeoLite2-City database.  Empty disables
// lookups.
type GeoIP struct {
	Path string `koanf:"path"`
}

// Sentry configures optional panic capture.  Empty DSN disables it.
type Sentry struct {
	DSN string `koanf:"dsn"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // INBOX_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is built once in main and passed by pointer to every component
// that needs a setting.  Treat it as immutable after Load returns.
type Config struct {
	Env      string   `koanf:"env" validate:"oneof=development production test"`
	HTTP     HTTP     `koanf:"http"`
	Auth     Auth     `koanf:"auth"`
	Database Database `koanf:"database"`
	Sources  Sources  `koanf:"sources"`
	Log      Log      `koanf:"log"`
	GeoIP    GeoIP    `koanf:"geoip"`
	Sentry   Sentry   `koanf:"sentry"`

	Paths     Paths    `koanf:"-"`
	Fallbacks []string `koanf:"-"` // keys that fell back to an insecure default
}

// IsDevelopment reports whether error details may be echoed to clients.
func (c *Config) IsDevelopment() bool { return c.Env == EnvDevelopment }
