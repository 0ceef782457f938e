package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port   string
	AppEnv string

	MongoURI      string
	MongoDatabase string

	Redis RedisConfig

	AWS     AWSConfig
	Cognito CognitoConfig

	JWTSecret string

	ParserURL     string
	ParserTimeout time.Duration

	UploadDir string
	ClientURL string

	Email EmailConfig

	LogLevel string
	LogFile  string

	JobsEnabled        bool
	DefaultPhoneRegion string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Bucket          string
}

type CognitoConfig struct {
	UserPoolID   string
	ClientID     string
	ClientSecret string
}

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Issuer is the Cognito token issuer, empty when the pool is not configured.
func (c *Config) Issuer() string {
	if c.Cognito.UserPoolID == "" || c.AWS.Region == "" {
		return ""
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.AWS.Region, c.Cognito.UserPoolID)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "5000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "ashray")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", "10m")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("FLASK_SERVICE_URL", "http://localhost:5000")
	v.SetDefault("PARSER_TIMEOUT", "60s")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("CLIENT_URL", "http://localhost:3000")
	v.SetDefault("EMAIL_PORT", 587)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("JOBS_ENABLED", true)
	v.SetDefault("DEFAULT_PHONE_REGION", "IN")
}

var envKeys = []string{
	"PORT", "APP_ENV", "MONGO_URI", "MONGO_DATABASE",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "CACHE_TTL",
	"AWS_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_SESSION_TOKEN", "AWS_S3_BUCKET",
	"AWS_COGNITO_USER_POOL_ID", "AWS_COGNITO_CLIENT_ID", "AWS_COGNITO_CLIENT_SECRET",
	"JWT_SECRET", "FLASK_SERVICE_URL", "PARSER_TIMEOUT", "UPLOAD_DIR", "CLIENT_URL",
	"EMAIL_HOST", "EMAIL_PORT", "EMAIL_USER", "EMAIL_PASSWORD", "EMAIL_FROM",
	"LOG_LEVEL", "LOG_FILE", "JOBS_ENABLED", "DEFAULT_PHONE_REGION",
}

/*
* Load the .env file when present
* Environment variables override everything, defaults fill the gaps
* Durations and numbers are validated here so startup fails early
 */
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Error in loading the ENV")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	for _, k := range envKeys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", k, err)
		}
	}

	cacheTTL, err := time.ParseDuration(v.GetString("CACHE_TTL"))
	if err != nil {
		return nil, fmt.Errorf("config: CACHE_TTL: %w", err)
	}
	parserTimeout, err := time.ParseDuration(v.GetString("PARSER_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("config: PARSER_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Port:          v.GetString("PORT"),
		AppEnv:        v.GetString("APP_ENV"),
		MongoURI:      v.GetString("MONGO_URI"),
		MongoDatabase: v.GetString("MONGO_DATABASE"),
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			TTL:      cacheTTL,
		},
		AWS: AWSConfig{
			Region:          v.GetString("AWS_REGION"),
			AccessKeyID:     v.GetString("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    v.GetString("AWS_SESSION_TOKEN"),
			Bucket:          v.GetString("AWS_S3_BUCKET"),
		},
		Cognito: CognitoConfig{
			UserPoolID:   v.GetString("AWS_COGNITO_USER_POOL_ID"),
			ClientID:     v.GetString("AWS_COGNITO_CLIENT_ID"),
			ClientSecret: v.GetString("AWS_COGNITO_CLIENT_SECRET"),
		},
		JWTSecret:     v.GetString("JWT_SECRET"),
		ParserURL:     strings.TrimRight(v.GetString("FLASK_SERVICE_URL"), "/"),
		ParserTimeout: parserTimeout,
		UploadDir:     v.GetString("UPLOAD_DIR"),
		ClientURL:     v.GetString("CLIENT_URL"),
		Email: EmailConfig{
			Host:     v.GetString("EMAIL_HOST"),
			Port:     v.GetInt("EMAIL_PORT"),
			User:     v.GetString("EMAIL_USER"),
			Password: v.GetString("EMAIL_PASSWORD"),
			From:     v.GetString("EMAIL_FROM"),
		},
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFile:            v.GetString("LOG_FILE"),
		JobsEnabled:        v.GetBool("JOBS_ENABLED"),
		DefaultPhoneRegion: strings.ToUpper(v.GetString("DEFAULT_PHONE_REGION")),
	}
	return cfg, nil
}
