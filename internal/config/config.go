// Package config assembles the application configuration from defaults, an
// optional JSON config file, environment variables and command-line flags,
// in increasing order of priority, and validates the result.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the service. The token signing
// secret is carried here only until the app wiring hands it to the token
// codec; nothing else reads it.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" json:"server_address" validate:"hostname_port"`
	LogLevel            string        `env:"LOG_LEVEL" json:"log_level" validate:"loglevel"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" json:"file_storage_path" validate:"filepath"`
	DatabaseDSN         string        `env:"DATABASE_DSN" json:"database_dsn"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" json:"db_connection_timeout"`
	MigrationsDir       string        `env:"MIGRATIONS_DIR" json:"migrations_dir"`

	// TokenSigningSecretKey is the base64url-encoded symmetric key used to
	// sign and validate bearer tokens. It must be identical across every
	// instance that validates tokens issued by any other instance.
	TokenSigningSecretKey string `env:"TOKEN_SIGNING_SECRET_KEY" json:"token_signing_secret_key" validate:"required,base64url"`

	// TokenLifetime bounds the validity of issued tokens and thereby the
	// staleness window of the embedded admin flag.
	TokenLifetime time.Duration `env:"TOKEN_LIFETIME" json:"token_lifetime"`

	TrustedSubnet     string `env:"TRUSTED_SUBNET" json:"trusted_subnet" validate:"omitempty,cidr"`
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" json:"cors_allowed_origin"`

	ChannelCapacity          int           `env:"CHANNEL_CAPACITY" json:"channel_capacity" validate:"gt=0"`
	DelayBetweenQueueFetches time.Duration `env:"DELAY_BETWEEN_QUEUE_FETCHES" json:"delay_between_queue_fetches" validate:"gt=0"`
}

// The development key is fine for local runs; production deployments are
// expected to override TOKEN_SIGNING_SECRET_KEY.
var defaultConfig = Config{
	RunAddr:                  ":8080",
	LogLevel:                 "info",
	DBFileName:               "",
	DatabaseDSN:              "",
	DBConnectionTimeout:      10 * time.Second,
	MigrationsDir:            "cmd/linknest/migrations",
	TokenSigningSecretKey:    "bGlua25lc3QtZGV2ZWxvcG1lbnQtc2lnbmluZy1rZXk=",
	TokenLifetime:            10 * time.Hour,
	TrustedSubnet:            "",
	CORSAllowedOrigin:        "http://localhost:3000",
	ChannelCapacity:          100,
	DelayBetweenQueueFetches: 5 * time.Second,
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func validate(values *Config) error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(values)
}

// applyNonEmpty overlays every non-zero field of src onto dst.
func applyNonEmpty(dst *Config, src Config) {
	if src.RunAddr != "" {
		dst.RunAddr = src.RunAddr
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.DBFileName != "" {
		dst.DBFileName = src.DBFileName
	}
	if src.DatabaseDSN != "" {
		dst.DatabaseDSN = src.DatabaseDSN
	}
	if src.DBConnectionTimeout != 0 {
		dst.DBConnectionTimeout = src.DBConnectionTimeout
	}
	if src.MigrationsDir != "" {
		dst.MigrationsDir = src.MigrationsDir
	}
	if src.TokenSigningSecretKey != "" {
		dst.TokenSigningSecretKey = src.TokenSigningSecretKey
	}
	if src.TokenLifetime != 0 {
		dst.TokenLifetime = src.TokenLifetime
	}
	if src.TrustedSubnet != "" {
		dst.TrustedSubnet = src.TrustedSubnet
	}
	if src.CORSAllowedOrigin != "" {
		dst.CORSAllowedOrigin = src.CORSAllowedOrigin
	}
	if src.ChannelCapacity != 0 {
		dst.ChannelCapacity = src.ChannelCapacity
	}
	if src.DelayBetweenQueueFetches != 0 {
		dst.DelayBetweenQueueFetches = src.DelayBetweenQueueFetches
	}
}

func loadJSONConfig(fileName string, values *Config) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return err
	}

	fromFile := Config{}
	if err := json.Unmarshal(data, &fromFile); err != nil {
		return err
	}
	applyNonEmpty(values, fromFile)

	return nil
}

// InitOption customizes New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing skips command-line parsing; tests use it so the
// `go test` flags do not leak into the configuration.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds the configuration. Priority, lowest to highest: built-in
// defaults, JSON config file (-c flag or CONFIG env), environment
// variables, command-line flags.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := defaultConfig

	fromFlags := Config{}
	flagsWereSet := map[string]bool{}
	configFileName := os.Getenv("CONFIG")
	if !options.disableFlagsParsing {
		flags := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
		flags.StringVar(&fromFlags.RunAddr, "a", "", "address and port to run server")
		flags.StringVar(&fromFlags.LogLevel, "l", "", "logger level")
		flags.StringVar(&fromFlags.DBFileName, "f", "", "JSON file name with database")
		flags.StringVar(&fromFlags.DatabaseDSN, "d", "", "a string with the database connection details")
		flags.StringVar(&fromFlags.MigrationsDir, "m", "", "directory with goose migrations")
		flags.StringVar(&fromFlags.TokenSigningSecretKey, "s", "", "base64url-encoded token signing key")
		flags.DurationVar(&fromFlags.TokenLifetime, "e", 0, "lifetime of issued tokens")
		flags.StringVar(&fromFlags.TrustedSubnet, "t", "", "CIDR of the subnet allowed to read internal stats")
		flags.StringVar(&fromFlags.CORSAllowedOrigin, "o", "", "origin allowed by CORS")
		flags.StringVar(&configFileName, "c", configFileName, "JSON config file name")
		if err := flags.Parse(os.Args[1:]); err != nil {
			return nil, err
		}
		flags.Visit(func(f *flag.Flag) {
			flagsWereSet[f.Name] = true
		})
	}

	if configFileName != "" {
		if err := loadJSONConfig(configFileName, &values); err != nil {
			return nil, err
		}
	}

	valuesFromEnv := Config{}
	err = env.Parse(&valuesFromEnv)
	if err != nil {
		return nil, err
	}
	applyNonEmpty(&values, valuesFromEnv)

	if len(flagsWereSet) > 0 {
		applyNonEmpty(&values, fromFlags)
	}

	if err := validate(&values); err != nil {
		return nil, err
	}

	return &values, nil
}
