package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"saleor-apps-core/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// APL backends
const (
	APLFile        = "file"
	APLRedis       = "redis"
	APLMongoDB     = "mongodb"
	APLDynamoDB    = "dynamodb"
	APLSaleorCloud = "saleor-cloud"
)

// Data backends for configs and transaction records
const (
	DataMongoDB  = "mongodb"
	DataDynamoDB = "dynamodb"
	DataRedis    = "redis"
	DataNone     = "none"
)

// Config is the process configuration, read once at startup
type Config struct {
	APL         string `validate:"oneof=file redis mongodb dynamodb saleor-cloud"`
	DataBackend string `validate:"oneof=mongodb dynamodb redis none"`
	FileAPLPath string

	RedisURL       string `validate:"required_if=APL redis,required_if=DataBackend redis"`
	RedisKeyPrefix string

	MongoDBURL      string `validate:"required_if=APL mongodb,required_if=DataBackend mongodb"`
	MongoDBDatabase string

	DynamoDBTableName  string `validate:"required_if=APL dynamodb,required_if=DataBackend dynamodb"`
	AWSRegion          string `validate:"required_if=APL dynamodb,required_if=DataBackend dynamodb"`
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	DynamoDBEndpoint   string

	RESTAPLEndpoint string `validate:"required_if=APL saleor-cloud,omitempty,url"`
	RESTAPLToken    string `validate:"required_if=APL saleor-cloud"`

	// SecretKey encrypts config secrets at rest
	SecretKey string `validate:"required_unless=DataBackend none"`
	AppID     string

	Port     string `validate:"required,numeric"`
	LogLevel string `validate:"oneof=trace debug info warn error fatal panic disabled"`

	CreditsAPIURL string `validate:"omitempty,url"`
	CreditsAPIKey string

	// AllowedOrigins is the CORS allow list; empty allows any origin
	AllowedOrigins []string
}

// Load reads .env if present, then the environment, and validates the result
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a lookup function
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		APL:                strings.ToLower(get("APL", APLFile)),
		FileAPLPath:        get("FILE_APL_PATH", ".auth-data.json"),
		RedisURL:           get("REDIS_URL", ""),
		RedisKeyPrefix:     get("REDIS_KEY_PREFIX", "saleor_apps"),
		MongoDBURL:         get("MONGODB_URL", ""),
		MongoDBDatabase:    get("MONGODB_DATABASE", "saleor_apps"),
		DynamoDBTableName:  get("DYNAMODB_MAIN_TABLE_NAME", ""),
		AWSRegion:          get("AWS_REGION", ""),
		AWSAccessKeyID:     get("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: get("AWS_SECRET_ACCESS_KEY", ""),
		DynamoDBEndpoint:   get("DYNAMODB_ENDPOINT", ""),
		RESTAPLEndpoint:    get("REST_APL_ENDPOINT", ""),
		RESTAPLToken:       get("REST_APL_TOKEN", ""),
		SecretKey:          get("SECRET_KEY", ""),
		AppID:              get("APP_ID", ""),
		Port:               get("PORT", "8080"),
		LogLevel:           strings.ToLower(get("LOG_LEVEL", "info")),
		CreditsAPIURL:      get("DEMETERED_API_URL", ""),
		CreditsAPIKey:      get("DEMETERED_ADMIN_API_KEY", ""),
		AllowedOrigins:     splitList(get("ALLOWED_ORIGINS", "")),
	}
	cfg.DataBackend = strings.ToLower(get("DATA_BACKEND", defaultDataBackend(cfg.APL)))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// defaultDataBackend keeps configs next to auth data when that store can hold them
func defaultDataBackend(apl string) string {
	switch apl {
	case APLMongoDB:
		return DataMongoDB
	case APLDynamoDB:
		return DataDynamoDB
	case APLRedis:
		return DataRedis
	default:
		return DataNone
	}
}

// Validate checks that the selected backends have their settings
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("%w: %w", domain.ErrMisconfigured, err)
	}

	problems := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		problems = append(problems, describe(fe))
	}
	return fmt.Errorf("%w: %s", domain.ErrMisconfigured, strings.Join(problems, "; "))
}

var envNames = map[string]string{
	"APL":                "APL",
	"DataBackend":        "DATA_BACKEND",
	"RedisURL":           "REDIS_URL",
	"MongoDBURL":         "MONGODB_URL",
	"DynamoDBTableName":  "DYNAMODB_MAIN_TABLE_NAME",
	"AWSRegion":          "AWS_REGION",
	"RESTAPLEndpoint":    "REST_APL_ENDPOINT",
	"RESTAPLToken":       "REST_APL_TOKEN",
	"SecretKey":          "SECRET_KEY",
	"Port":               "PORT",
	"LogLevel":           "LOG_LEVEL",
	"CreditsAPIURL":      "DEMETERED_API_URL",
	"AWSAccessKeyID":     "AWS_ACCESS_KEY_ID",
	"AWSSecretAccessKey": "AWS_SECRET_ACCESS_KEY",
}

func describe(fe validator.FieldError) string {
	name := envNames[fe.Field()]
	if name == "" {
		name = fe.Field()
	}
	switch fe.Tag() {
	case "required", "required_if", "required_unless":
		return name + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", name, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s is invalid (%s)", name, fe.Tag())
	}
}

// HasCredits reports whether the credits API is configured
func (c *Config) HasCredits() bool {
	return c.CreditsAPIURL != ""
}
