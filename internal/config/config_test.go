package config

import (
	"testing"

	"saleor-apps-core/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, APLFile, cfg.APL)
	assert.Equal(t, DataNone, cfg.DataBackend)
	assert.Equal(t, ".auth-data.json", cfg.FileAPLPath)
	assert.Equal(t, "saleor_apps", cfg.MongoDBDatabase)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.HasCredits())
}

func TestFromEnv_DataBackendFollowsAPL(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"mongodb", map[string]string{"APL": "mongodb", "MONGODB_URL": "mongodb://localhost:27017", "SECRET_KEY": "s"}, DataMongoDB},
		{"dynamodb", map[string]string{"APL": "dynamodb", "DYNAMODB_MAIN_TABLE_NAME": "main", "AWS_REGION": "eu-west-1", "SECRET_KEY": "s"}, DataDynamoDB},
		{"redis", map[string]string{"APL": "redis", "REDIS_URL": "redis://localhost:6379", "SECRET_KEY": "s"}, DataRedis},
		{"saleor cloud", map[string]string{"APL": "saleor-cloud", "REST_APL_ENDPOINT": "https://apl.example.com", "REST_APL_TOKEN": "t"}, DataNone},
		{"explicit override", map[string]string{"APL": "file", "DATA_BACKEND": "redis", "REDIS_URL": "localhost:6379", "SECRET_KEY": "s"}, DataRedis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromEnv(envOf(tt.env))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.DataBackend)
		})
	}
}

func TestFromEnv_Misconfigured(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		missing string
	}{
		{"mongodb without url", map[string]string{"APL": "mongodb", "SECRET_KEY": "s"}, "MONGODB_URL is required"},
		{"redis without url", map[string]string{"APL": "redis", "SECRET_KEY": "s"}, "REDIS_URL is required"},
		{"dynamodb without table", map[string]string{"APL": "dynamodb", "AWS_REGION": "eu-west-1", "SECRET_KEY": "s"}, "DYNAMODB_MAIN_TABLE_NAME is required"},
		{"dynamodb without region", map[string]string{"APL": "dynamodb", "DYNAMODB_MAIN_TABLE_NAME": "main", "SECRET_KEY": "s"}, "AWS_REGION is required"},
		{"cloud without token", map[string]string{"APL": "saleor-cloud", "REST_APL_ENDPOINT": "https://apl.example.com"}, "REST_APL_TOKEN is required"},
		{"cloud without endpoint", map[string]string{"APL": "saleor-cloud", "REST_APL_TOKEN": "t"}, "REST_APL_ENDPOINT is required"},
		{"data backend without secret", map[string]string{"APL": "mongodb", "MONGODB_URL": "mongodb://localhost"}, "SECRET_KEY is required"},
		{"data backend settings", map[string]string{"DATA_BACKEND": "mongodb", "SECRET_KEY": "s"}, "MONGODB_URL is required"},
		{"unknown apl", map[string]string{"APL": "postgres"}, "APL must be one of"},
		{"bad port", map[string]string{"PORT": "http"}, "PORT is invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(envOf(tt.env))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrMisconfigured)
			assert.Contains(t, err.Error(), tt.missing)
		})
	}
}

func TestFromEnv_TrimsAndLowercases(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"APL":               " MongoDB ",
		"MONGODB_URL":       "mongodb://localhost:27017",
		"SECRET_KEY":        "s",
		"LOG_LEVEL":         "DEBUG",
		"DEMETERED_API_URL": "http://credits.local",
	}))
	require.NoError(t, err)
	assert.Equal(t, APLMongoDB, cfg.APL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.HasCredits())
}

func TestFromEnv_AllowedOrigins(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{"ALLOWED_ORIGINS": " https://dashboard.saleor.io, ,https://admin.example.com"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://dashboard.saleor.io", "https://admin.example.com"}, cfg.AllowedOrigins)
}
