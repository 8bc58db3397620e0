package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	gateAuth "github.com/MrEthical07/gateAuth"
	"github.com/MrEthical07/gateAuth/api"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// SecretEnv overrides cookieSessionSecret when set.
const SecretEnv = "GATEAUTH_SESSION_SECRET"

var ErrUnsupportedFormat = errors.New("unsupported config format")

// File is the on-disk dashboard authentication configuration.
type File struct {
	Addr string `yaml:"addr" toml:"addr" json:"addr"`
	// TrustProxy takes the client IP from X-Forwarded-For/X-Real-IP. Enable
	// it only behind a reverse proxy that overwrites those headers.
	TrustProxy            bool      `yaml:"trustProxy" toml:"trustProxy" json:"trustProxy"`
	MountPath             string    `yaml:"mountPath" toml:"mountPath" json:"mountPath"`
	UseEncryptedPasswords bool      `yaml:"useEncryptedPasswords" toml:"useEncryptedPasswords" json:"useEncryptedPasswords"`
	CookieSessionSecret   string    `yaml:"cookieSessionSecret" toml:"cookieSessionSecret" json:"cookieSessionSecret"`
	PreviousSecrets       []string  `yaml:"previousSecrets" toml:"previousSecrets" json:"previousSecrets"`
	Users                 []User    `yaml:"users" toml:"users" json:"users"`
	Apps                  []api.App `yaml:"apps" toml:"apps" json:"apps"`
	Redis                 Redis     `yaml:"redis" toml:"redis" json:"redis"`
	Session               Session   `yaml:"session" toml:"session" json:"session"`
	Cookie                Cookie    `yaml:"cookie" toml:"cookie" json:"cookie"`
	Security              Security  `yaml:"security" toml:"security" json:"security"`
	Audit                 Audit     `yaml:"audit" toml:"audit" json:"audit"`
	Metrics               Metrics   `yaml:"metrics" toml:"metrics" json:"metrics"`
}

// User is one configured dashboard user. Pass is plain text or a bcrypt
// or argon2id hash depending on useEncryptedPasswords.
type User struct {
	User     string   `yaml:"user" toml:"user" json:"user"`
	Pass     string   `yaml:"pass" toml:"pass" json:"pass"`
	Apps     []AppRef `yaml:"apps" toml:"apps" json:"apps"`
	ReadOnly bool     `yaml:"readOnly" toml:"readOnly" json:"readOnly"`
}

type Redis struct {
	Addrs        []string `yaml:"addrs" toml:"addrs" json:"addrs"`
	Username     string   `yaml:"username" toml:"username" json:"username"`
	Password     string   `yaml:"password" toml:"password" json:"password"`
	DB           int      `yaml:"db" toml:"db" json:"db"`
	MasterName   string   `yaml:"masterName" toml:"masterName" json:"masterName"`
	DialTimeout  Duration `yaml:"dialTimeout" toml:"dialTimeout" json:"dialTimeout"`
	ReadTimeout  Duration `yaml:"readTimeout" toml:"readTimeout" json:"readTimeout"`
	WriteTimeout Duration `yaml:"writeTimeout" toml:"writeTimeout" json:"writeTimeout"`
	PoolSize     int      `yaml:"poolSize" toml:"poolSize" json:"poolSize"`
}

type Session struct {
	TTL         Duration `yaml:"ttl" toml:"ttl" json:"ttl"`
	RedisPrefix string   `yaml:"redisPrefix" toml:"redisPrefix" json:"redisPrefix"`
	Encoding    string   `yaml:"encoding" toml:"encoding" json:"encoding"`
	Issuer      string   `yaml:"issuer" toml:"issuer" json:"issuer"`
}

type Cookie struct {
	Name     string `yaml:"name" toml:"name" json:"name"`
	Domain   string `yaml:"domain" toml:"domain" json:"domain"`
	Path     string `yaml:"path" toml:"path" json:"path"`
	Secure   bool   `yaml:"secure" toml:"secure" json:"secure"`
	HTTPOnly bool   `yaml:"httpOnly" toml:"httpOnly" json:"httpOnly"`
	SameSite string `yaml:"sameSite" toml:"sameSite" json:"sameSite"`
}

// Security toggles are pointers so an absent key keeps the default.
type Security struct {
	LoginThrottle    *bool    `yaml:"loginThrottle" toml:"loginThrottle" json:"loginThrottle"`
	IPThrottle       *bool    `yaml:"ipThrottle" toml:"ipThrottle" json:"ipThrottle"`
	MaxLoginAttempts int      `yaml:"maxLoginAttempts" toml:"maxLoginAttempts" json:"maxLoginAttempts"`
	Cooldown         Duration `yaml:"cooldown" toml:"cooldown" json:"cooldown"`
}

type Audit struct {
	Enabled    bool `yaml:"enabled" toml:"enabled" json:"enabled"`
	BufferSize int  `yaml:"bufferSize" toml:"bufferSize" json:"bufferSize"`
}

type Metrics struct {
	Enabled           bool `yaml:"enabled" toml:"enabled" json:"enabled"`
	LatencyHistograms bool `yaml:"latencyHistograms" toml:"latencyHistograms" json:"latencyHistograms"`
}

// Load reads path, choosing the decoder from its extension.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes data in format "yaml", "yml", "toml" or "json" and applies
// the SecretEnv override.
func Parse(data []byte, format string) (*File, error) {
	var f File
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, err
		}
	case "toml":
		if _, err := toml.Decode(string(data), &f); err != nil {
			return nil, err
		}
	case "json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if secret := os.Getenv(SecretEnv); secret != "" {
		f.CookieSessionSecret = secret
	}
	return &f, nil
}

// EngineConfig overlays the file on gateAuth.DefaultConfig and validates
// the result.
func (f *File) EngineConfig() (gateAuth.Config, error) {
	cfg := gateAuth.DefaultConfig()

	if f.MountPath != "" {
		cfg.MountPath = f.MountPath
	}
	cfg.Credentials.UseEncryptedPasswords = f.UseEncryptedPasswords
	cfg.Session.Secret = f.CookieSessionSecret
	cfg.Session.PreviousSecrets = f.PreviousSecrets

	if f.Session.TTL > 0 {
		cfg.Session.TTL = time.Duration(f.Session.TTL)
	}
	setString(&cfg.Session.RedisPrefix, f.Session.RedisPrefix)
	setString(&cfg.Session.SessionEncoding, f.Session.Encoding)
	setString(&cfg.Session.Issuer, f.Session.Issuer)

	setString(&cfg.Cookie.Name, f.Cookie.Name)
	setString(&cfg.Cookie.Domain, f.Cookie.Domain)
	setString(&cfg.Cookie.Path, f.Cookie.Path)
	cfg.Cookie.Secure = f.Cookie.Secure
	cfg.Cookie.HTTPOnly = f.Cookie.HTTPOnly
	if f.Cookie.SameSite != "" {
		mode, err := parseSameSite(f.Cookie.SameSite)
		if err != nil {
			return gateAuth.Config{}, err
		}
		cfg.Cookie.SameSite = mode
	}

	if f.Security.LoginThrottle != nil {
		cfg.Security.EnableLoginThrottle = *f.Security.LoginThrottle
	}
	if f.Security.IPThrottle != nil {
		cfg.Security.EnableIPThrottle = *f.Security.IPThrottle
	}
	if f.Security.MaxLoginAttempts > 0 {
		cfg.Security.MaxLoginAttempts = f.Security.MaxLoginAttempts
	}
	if f.Security.Cooldown > 0 {
		cfg.Security.LoginCooldownDuration = time.Duration(f.Security.Cooldown)
	}

	cfg.Audit.Enabled = f.Audit.Enabled
	if f.Audit.BufferSize > 0 {
		cfg.Audit.BufferSize = f.Audit.BufferSize
	}
	cfg.Metrics.Enabled = f.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = f.Metrics.LatencyHistograms

	if err := cfg.Validate(); err != nil {
		return gateAuth.Config{}, err
	}
	return cfg, nil
}

// UserRecords converts the configured users. A user without an apps key
// may open every app.
func (f *File) UserRecords() []gateAuth.UserRecord {
	out := make([]gateAuth.UserRecord, 0, len(f.Users))
	for _, u := range f.Users {
		rec := gateAuth.UserRecord{
			Username: u.User,
			Secret:   u.Pass,
			ReadOnly: u.ReadOnly,
		}
		if u.Apps != nil {
			rec.AllowedApps = make([]string, len(u.Apps))
			for i, a := range u.Apps {
				rec.AllowedApps[i] = string(a)
			}
		}
		out = append(out, rec)
	}
	return out
}

// RedisOptions returns client options; no addresses means localhost:6379.
func (f *File) RedisOptions() *redis.UniversalOptions {
	addrs := f.Redis.Addrs
	if len(addrs) == 0 {
		addrs = []string{"localhost:6379"}
	}
	return &redis.UniversalOptions{
		Addrs:        addrs,
		Username:     f.Redis.Username,
		Password:     f.Redis.Password,
		DB:           f.Redis.DB,
		MasterName:   f.Redis.MasterName,
		DialTimeout:  time.Duration(f.Redis.DialTimeout),
		ReadTimeout:  time.Duration(f.Redis.ReadTimeout),
		WriteTimeout: time.Duration(f.Redis.WriteTimeout),
		PoolSize:     f.Redis.PoolSize,
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(v) {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	case "default":
		return http.SameSiteDefaultMode, nil
	default:
		return 0, fmt.Errorf("invalid cookie sameSite %q", v)
	}
}
