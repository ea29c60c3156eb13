// Package config contains utilities for loading configs
package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/matt-dz/streamhub/internal/log"
	"github.com/matt-dz/streamhub/internal/password"
)

const (
	defaultConfigFilePath = "/data/streamhub.yaml"
	secretBytes           = 32
	secretFilePerms       = 0o600
)

const (
	EnvProd = "PROD"
	EnvDev  = "DEV"
)

const (
	defaultPort               = 8000
	defaultAccessTokenExpiry  = 15 * time.Minute
	defaultRefreshTokenExpiry = 240 * time.Hour
	defaultKeyVersion         = "1"
	defaultAccessSecretPath   = "/data/access_token_secret"
	defaultRefreshSecretPath  = "/data/refresh_token_secret"
	defaultDatabaseHost       = "localhost"
	defaultDatabasePort       = 5432
	defaultRedisPrefix        = "streamhub"
	defaultLogLevel           = "info"
)

// SessionStore selects where refresh tokens live. Users are kept in
// PostgreSQL for both the postgres and redis stores, and in process memory
// for the memory store.
type SessionStore string

const (
	SessionStorePostgres SessionStore = "postgres"
	SessionStoreRedis    SessionStore = "redis"
	SessionStoreMemory   SessionStore = "memory"
)

func (s SessionStore) Validate() error {
	switch s {
	case SessionStorePostgres, SessionStoreRedis, SessionStoreMemory:
		return nil
	}
	return fmt.Errorf("unknown session store: %q", s)
}

type LogLevel string

func (l LogLevel) Validate() error {
	_, err := log.ParseLevel(string(l))
	return err
}

type SecretValue string

func (s *SecretValue) Validate() error {
	if s == nil {
		return errors.New("secret should not be nil")
	}
	if len([]byte(*s)) < secretBytes {
		return errors.New("secret should be at least 32 bytes")
	}
	return nil
}

func splitFieldList(param string) []string {
	// "A,B,C" or "A B C"
	param = strings.ReplaceAll(param, " ", ",")
	parts := strings.Split(param, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// allOrNothing is a cross-field validator for go-playground/validator. It
// succeeds only if the listed fields are either all zero or all non-zero.
//
// It must be attached to a placeholder field and inspects the parent struct.
// Field names are given as a comma- or space-separated list, e.g.
// `validate:"allOrNothing=A,B,C"`. A nil pointer or interface counts as zero;
// a non-nil one is dereferenced before the check.
//
// A non-struct parent, an unknown field name or an empty list fails
// validation to signal misconfiguration.
func allOrNothing(fl validator.FieldLevel) bool {
	parent := fl.Parent()
	if parent.Kind() == reflect.Pointer {
		if parent.IsNil() {
			return true // nothing to validate
		}
		parent = parent.Elem()
	}
	if parent.Kind() != reflect.Struct {
		return false
	}

	names := splitFieldList(fl.Param())
	if len(names) == 0 {
		return false
	}

	hasZero := false
	hasNonZero := false

	for _, name := range names {
		f := parent.FieldByName(name)
		if !f.IsValid() {
			return false // field name typo / not found
		}

		for (f.Kind() == reflect.Pointer || f.Kind() == reflect.Interface) && !f.IsNil() {
			f = f.Elem()
		}

		if f.IsZero() {
			hasZero = true
		} else {
			hasNonZero = true
		}

		if hasZero && hasNonZero {
			return false
		}
	}

	return true
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("allOrNothing", allOrNothing)
	return v
}

func formatValidationError(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors) //nolint:errorlint
	if !ok {
		return err
	}

	for _, e := range validationErrs {
		if e.Tag() == "allOrNothing" {
			// e.g., "Config.Database.Validate" -> "Database"
			parts := strings.Split(e.Namespace(), ".")
			var structName string
			//nolint:mnd
			if len(parts) >= 2 {
				structName = parts[len(parts)-2]
			}

			var fields string
			switch structName {
			case "Database":
				fields = "Port, Host, Database, User, and Password"
			default:
				fields = "all related fields"
			}

			return fmt.Errorf(
				"%s configuration is incomplete: either all fields must be set (%s) or all must be empty",
				structName, fields)
		}
	}

	return err
}

type Secret struct {
	Value *SecretValue `yaml:"value" validate:"omitempty,validateFn"`
	Path  string       `yaml:"path" validate:"omitempty,filepath"`
}

type Tokens struct {
	AccessSecret  Secret        `yaml:"access_secret"`
	RefreshSecret Secret        `yaml:"refresh_secret"`
	AccessExpiry  time.Duration `yaml:"access_expiry" validate:"gt=0"`
	RefreshExpiry time.Duration `yaml:"refresh_expiry" validate:"gt=0"`
	KeyVersion    string        `yaml:"key_version" validate:"required"`
}

type Database struct {
	Port     uint16 `yaml:"port"`
	Host     string `yaml:"host" validate:"omitempty,hostname_rfc1123"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	Validate struct{} `yaml:"-" validate:"allOrNothing=Port Host Database User Password"`
}

func (d Database) Configured() bool {
	return d.Database != "" && d.User != ""
}

type Redis struct {
	Addr     string `yaml:"addr" validate:"omitempty,hostname_port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Prefix   string `yaml:"prefix"`
}

type Password struct {
	Hasher       password.Algorithm `yaml:"hasher" validate:"validateFn"`
	BcryptCost   int                `yaml:"bcrypt_cost" validate:"min=4,max=31"`
	MinLength    int                `yaml:"min_length" validate:"min=1,max=72"`
	RequireMixed bool               `yaml:"require_mixed"`
	MinEntropy   float64            `yaml:"min_entropy" validate:"gte=0"`
}

// Policy converts the settings into a password policy.
func (p Password) Policy() password.Policy {
	return password.Policy{
		MinLength:      p.MinLength,
		RequireMixed:   p.RequireMixed,
		MinEntropyBits: p.MinEntropy,
	}
}

// NewHasher converts the settings into a password hasher.
func (p Password) NewHasher() password.Hasher {
	h := password.NewHasher(p.Hasher)
	h.BcryptCost = p.BcryptCost
	return h
}

type HTTP struct {
	Port         uint16 `yaml:"port" validate:"required"`
	CORSOrigin   string `yaml:"cors_origin" validate:"omitempty,url"`
	CookieSecure bool   `yaml:"cookie_secure"`
	// RateLimit is the number of auth requests a client may make per
	// minute. Zero disables limiting.
	RateLimit int `yaml:"rate_limit" validate:"gte=0"`
}

type Config struct {
	Env          string       `yaml:"env" validate:"omitempty,oneof=DEV PROD"`
	LogLevel     LogLevel     `yaml:"log_level" validate:"validateFn"`
	HTTP         HTTP         `yaml:"http"`
	Tokens       Tokens       `yaml:"tokens"`
	SessionStore SessionStore `yaml:"session_store" validate:"validateFn"`
	Database     Database     `yaml:"database"`
	Redis        Redis        `yaml:"redis"`
	Password     Password     `yaml:"password"`
}

func newSecret() (string, error) {
	token := make([]byte, secretBytes)
	if _, err := rand.Reader.Read(token); err != nil {
		return "", fmt.Errorf("creating secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(token), nil
}

// loadSecret fills secret.Value from secret.Path when no value was given,
// generating and persisting a new secret if the file does not exist yet.
func loadSecret(secret *Secret) error {
	if secret.Value != nil {
		return nil
	}
	if secret.Path == "" {
		return errors.New("either a secret value or a secret path is required")
	}

	var value string
	if f1, err := os.Lstat(secret.Path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking secret path: %w", err)
		}

		file, err := os.OpenFile(secret.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, secretFilePerms)
		if err != nil {
			return fmt.Errorf("creating secret file: %w", err)
		}
		defer func() { _ = file.Close() }()

		value, err = newSecret()
		if err != nil {
			return fmt.Errorf("generating new secret: %w", err)
		}

		if _, err := file.WriteString(value); err != nil {
			return fmt.Errorf("writing secret file: %w", err)
		}
	} else {
		if f1.IsDir() {
			return fmt.Errorf("expected file, got directory at %q", secret.Path)
		}
		data, err := os.ReadFile(secret.Path)
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}
		value = strings.TrimSpace(string(data))
	}
	val := SecretValue(value)
	if err := val.Validate(); err != nil {
		return fmt.Errorf("secret at %q: %w", secret.Path, err)
	}
	secret.Value = &val
	return nil
}

func loadSecrets(config *Config) error {
	if err := loadSecret(&config.Tokens.AccessSecret); err != nil {
		return fmt.Errorf("loading access token secret: %w", err)
	}
	if err := loadSecret(&config.Tokens.RefreshSecret); err != nil {
		return fmt.Errorf("loading refresh token secret: %w", err)
	}
	if *config.Tokens.AccessSecret.Value == *config.Tokens.RefreshSecret.Value {
		return errors.New("access and refresh token secrets must differ")
	}
	return nil
}

// checkStorage verifies that the backends required by the session store are
// configured.
func checkStorage(config *Config) error {
	switch config.SessionStore {
	case SessionStorePostgres, SessionStoreRedis:
		if !config.Database.Configured() {
			return fmt.Errorf("session store %q requires a database configuration", config.SessionStore)
		}
	}
	if config.SessionStore == SessionStoreRedis && config.Redis.Addr == "" {
		return errors.New(`session store "redis" requires a redis address`)
	}
	return nil
}

func finalize(config *Config) error {
	if err := newValidator().Struct(config); err != nil {
		return formatValidationError(err)
	}
	if err := checkStorage(config); err != nil {
		return err
	}
	if err := loadSecrets(config); err != nil {
		return err
	}
	return nil
}

func loadWithDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	raw := loadWithDefault(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s (%q): %w", key, raw, err)
	}
	return d, nil
}

func parseInt(key, def string) (int, error) {
	raw := loadWithDefault(key, def)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s (%q): %w", key, raw, err)
	}
	return n, nil
}

func parseBool(key, def string) (bool, error) {
	raw := loadWithDefault(key, def)
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s (%q): %w", key, raw, err)
	}
	return b, nil
}

func parsePort(key, def string) (uint16, error) {
	raw := loadWithDefault(key, def)
	port, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s (%q): %w", key, raw, err)
	}
	return uint16(port), nil
}

func loadConfigFromEnv() (Config, error) {
	environment := loadWithDefault("ENV", EnvDev)

	conf := Config{
		Env:          environment,
		LogLevel:     LogLevel(loadWithDefault("LOG_LEVEL", defaultLogLevel)),
		SessionStore: SessionStore(loadWithDefault("SESSION_STORE", string(SessionStorePostgres))),
	}

	// HTTP
	var err error
	if conf.HTTP.Port, err = parsePort("PORT", strconv.Itoa(defaultPort)); err != nil {
		return conf, err
	}
	conf.HTTP.CORSOrigin = loadWithDefault("CORS_ORIGIN", "")
	if conf.HTTP.CookieSecure, err = parseBool("COOKIE_SECURE", strconv.FormatBool(environment == EnvProd)); err != nil {
		return conf, err
	}
	if conf.HTTP.RateLimit, err = parseInt("AUTH_RATE_LIMIT", "0"); err != nil {
		return conf, err
	}

	// Tokens
	conf.Tokens = Tokens{
		AccessSecret:  Secret{Path: loadWithDefault("ACCESS_TOKEN_SECRET_PATH", defaultAccessSecretPath)},
		RefreshSecret: Secret{Path: loadWithDefault("REFRESH_TOKEN_SECRET_PATH", defaultRefreshSecretPath)},
		KeyVersion:    loadWithDefault("TOKEN_KEY_VERSION", defaultKeyVersion),
	}
	if v := SecretValue(loadWithDefault("ACCESS_TOKEN_SECRET", "")); v != "" {
		conf.Tokens.AccessSecret.Value = &v
	}
	if v := SecretValue(loadWithDefault("REFRESH_TOKEN_SECRET", "")); v != "" {
		conf.Tokens.RefreshSecret.Value = &v
	}
	if conf.Tokens.AccessExpiry, err = parseDuration("ACCESS_TOKEN_EXPIRY", defaultAccessTokenExpiry.String()); err != nil {
		return conf, err
	}
	if conf.Tokens.RefreshExpiry, err = parseDuration("REFRESH_TOKEN_EXPIRY", defaultRefreshTokenExpiry.String()); err != nil {
		return conf, err
	}

	// Database. Host and port only default once the database is being
	// configured.
	conf.Database = Database{
		Host:     loadWithDefault("DATABASE_HOST", ""),
		Database: loadWithDefault("DATABASE", ""),
		User:     loadWithDefault("DATABASE_USER", ""),
		Password: loadWithDefault("DATABASE_PASSWORD", ""),
	}
	databasePort := loadWithDefault("DATABASE_PORT", "")
	if conf.Database.Database != "" || conf.Database.User != "" || conf.Database.Password != "" {
		if conf.Database.Host == "" {
			conf.Database.Host = defaultDatabaseHost
		}
		if databasePort == "" {
			databasePort = strconv.Itoa(defaultDatabasePort)
		}
	}
	if databasePort != "" {
		if conf.Database.Port, err = parsePort("DATABASE_PORT", databasePort); err != nil {
			return conf, err
		}
	}

	// Redis
	conf.Redis = Redis{
		Addr:     loadWithDefault("REDIS_ADDR", ""),
		Password: loadWithDefault("REDIS_PASSWORD", ""),
		Prefix:   loadWithDefault("REDIS_PREFIX", defaultRedisPrefix),
	}
	if conf.Redis.DB, err = parseInt("REDIS_DB", "0"); err != nil {
		return conf, err
	}

	// Password
	conf.Password = Password{
		Hasher: password.Algorithm(loadWithDefault("PASSWORD_HASHER", string(password.AlgorithmBcrypt))),
	}
	if conf.Password.BcryptCost, err = parseInt("BCRYPT_COST", strconv.Itoa(password.DefaultBcryptCost)); err != nil {
		return conf, err
	}
	if conf.Password.MinLength, err = parseInt("PASSWORD_MIN_LENGTH", strconv.Itoa(password.DefaultMinimumLength)); err != nil {
		return conf, err
	}
	if conf.Password.RequireMixed, err = parseBool("PASSWORD_REQUIRE_MIXED", "false"); err != nil {
		return conf, err
	}
	minEntropy := loadWithDefault("PASSWORD_MIN_ENTROPY", "0")
	if conf.Password.MinEntropy, err = strconv.ParseFloat(minEntropy, 64); err != nil {
		return conf, fmt.Errorf("invalid PASSWORD_MIN_ENTROPY (%q): %w", minEntropy, err)
	}

	if err := finalize(&conf); err != nil {
		return conf, err
	}
	return conf, nil
}

func setFileDefaults(config *Config) {
	if config.Env == "" {
		config.Env = EnvDev
	}
	if config.LogLevel == "" {
		config.LogLevel = defaultLogLevel
	}
	if config.HTTP.Port == 0 {
		config.HTTP.Port = defaultPort
	}
	if config.SessionStore == "" {
		config.SessionStore = SessionStorePostgres
	}
	if config.Tokens.AccessSecret.Path == "" {
		config.Tokens.AccessSecret.Path = defaultAccessSecretPath
	}
	if config.Tokens.RefreshSecret.Path == "" {
		config.Tokens.RefreshSecret.Path = defaultRefreshSecretPath
	}
	if config.Tokens.AccessExpiry == 0 {
		config.Tokens.AccessExpiry = defaultAccessTokenExpiry
	}
	if config.Tokens.RefreshExpiry == 0 {
		config.Tokens.RefreshExpiry = defaultRefreshTokenExpiry
	}
	if config.Tokens.KeyVersion == "" {
		config.Tokens.KeyVersion = defaultKeyVersion
	}
	// Only default host and port if the database is being configured
	if config.Database.Database != "" || config.Database.User != "" || config.Database.Password != "" {
		if config.Database.Host == "" {
			config.Database.Host = defaultDatabaseHost
		}
		if config.Database.Port == 0 {
			config.Database.Port = defaultDatabasePort
		}
	}
	if config.Redis.Prefix == "" {
		config.Redis.Prefix = defaultRedisPrefix
	}
	if config.Password.Hasher == "" {
		config.Password.Hasher = password.AlgorithmBcrypt
	}
	if config.Password.BcryptCost == 0 {
		config.Password.BcryptCost = password.DefaultBcryptCost
	}
	if config.Password.MinLength == 0 {
		config.Password.MinLength = password.DefaultMinimumLength
	}
}

func loadConfigFromFile(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(contents, &config); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}

	setFileDefaults(&config)

	if err := finalize(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}

func configFileExists(path string) bool {
	f, err := os.Lstat(path)
	if err != nil {
		return false
	}

	return !f.IsDir()
}

// loadDotEnv reads .env files into the environment. Variables that are
// already set win, and missing files are ignored.
func loadDotEnv(files ...string) {
	for _, f := range files {
		if configFileExists(f) {
			_ = godotenv.Load(f)
		}
	}
}

// LoadConfig reads CONFIG_FILE when it exists and the environment
// otherwise.
func LoadConfig() (Config, error) {
	loadDotEnv(".env.local", ".env")

	path := loadWithDefault("CONFIG_FILE", defaultConfigFilePath)
	if configFileExists(path) {
		return loadConfigFromFile(path)
	}

	return loadConfigFromEnv()
}
