package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/plantapi/internal/flagx"
	"github.com/dmitrijs2005/plantapi/internal/timex"
)

// JsonConfig is the on-disk shape of Config. Durations accept "1m" strings
// or integer nanoseconds. Pointer fields distinguish "absent" from zero.
type JsonConfig struct {
	EndpointAddrHTTP             string          `json:"endpoint_addr_http"`
	EndpointAddrGRPC             string          `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string          `json:"database_dsn"`
	RedisURL                     string          `json:"redis_url"`
	AccessSecret                 string          `json:"access_secret"`
	RefreshSecret                string          `json:"refresh_secret"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	SyncTokenSecret              string          `json:"sync_token_secret"`
	SyncServiceSecret            string          `json:"sync_service_secret"`
	ChatbotTokenSecret           string          `json:"chatbot_token_secret"`
	ChatbotSubject               string          `json:"chatbot_subject"`
	StoreTimeout                 *timex.Duration `json:"store_timeout"`
	RefreshChecksRevocation      *bool           `json:"refresh_checks_revocation"`
	BcryptCost                   *int            `json:"bcrypt_cost"`
	S3RootUser                   string          `json:"s3_root_user"`
	S3RootPassword               string          `json:"s3_root_password"`
	S3Bucket                     string          `json:"s3_bucket"`
	S3Region                     string          `json:"s3_region"`
	S3BaseEndpoint               string          `json:"s3_base_endpoint"`
	S3PublicBaseURL              string          `json:"s3_public_base_url"`
	SMTPHost                     string          `json:"smtp_host"`
	SMTPPort                     *int            `json:"smtp_port"`
	SMTPUser                     string          `json:"smtp_user"`
	SMTPPassword                 string          `json:"smtp_password"`
	SMTPFrom                     string          `json:"smtp_from"`
	BaseURL                      string          `json:"base_url"`
	LogLevel                     string          `json:"log_level"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseJson overlays values from the file named by -c/-config onto config.
// Keys missing from the file keep their current value. An unreadable or
// malformed file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.RedisURL, c.RedisURL)
	setString(&config.AccessSecret, c.AccessSecret)
	setString(&config.RefreshSecret, c.RefreshSecret)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	setString(&config.SyncTokenSecret, c.SyncTokenSecret)
	setString(&config.SyncServiceSecret, c.SyncServiceSecret)
	setString(&config.ChatbotTokenSecret, c.ChatbotTokenSecret)
	setString(&config.ChatbotSubject, c.ChatbotSubject)
	if c.StoreTimeout != nil {
		config.StoreTimeout = c.StoreTimeout.Duration
	}
	if c.RefreshChecksRevocation != nil {
		config.RefreshChecksRevocation = *c.RefreshChecksRevocation
	}
	if c.BcryptCost != nil {
		config.BcryptCost = *c.BcryptCost
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3PublicBaseURL, c.S3PublicBaseURL)
	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort != nil {
		config.SMTPPort = *c.SMTPPort
	}
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)
	setString(&config.BaseURL, c.BaseURL)
	setString(&config.LogLevel, c.LogLevel)
}
