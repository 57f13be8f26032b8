package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/ava-vs/chunkvault/internal/flagx"
	"github.com/ava-vs/chunkvault/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "15m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files; after unmarshalling, its fields are copied into the
// runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP       string         `json:"endpoint_addr_http"`
	DatabaseDSN            string         `json:"database_dsn"`
	SecretKey              string         `json:"secret_key"`
	KeyWrappingSecret      string         `json:"key_wrapping_secret"`
	TokenValidityDuration  timex.Duration `json:"token_validity_duration"`
	S3AccessKey            string         `json:"s3_access_key"`
	S3SecretKey            string         `json:"s3_secret_key"`
	S3Bucket               string         `json:"s3_bucket"`
	S3Region               string         `json:"s3_region"`
	S3BaseEndpoint         string         `json:"s3_base_endpoint"`
	MaxChunkSize           int64          `json:"max_chunk_size"`
	SessionMaxAge          timex.Duration `json:"session_max_age"`
	SweepInterval          timex.Duration `json:"sweep_interval"`
	VerifyChunksOnComplete bool           `json:"verify_chunks_on_complete"`
	VerifyChunksOnDownload bool           `json:"verify_chunks_on_download"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path is taken from the -c or -config command-line flags; when
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics.
func parseJson(config *Config) {
	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.KeyWrappingSecret = c.KeyWrappingSecret
	config.TokenValidityDuration = time.Duration(c.TokenValidityDuration.Duration)
	config.S3AccessKey = c.S3AccessKey
	config.S3SecretKey = c.S3SecretKey
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.MaxChunkSize = c.MaxChunkSize
	config.SessionMaxAge = time.Duration(c.SessionMaxAge.Duration)
	config.SweepInterval = time.Duration(c.SweepInterval.Duration)
	config.VerifyChunksOnComplete = c.VerifyChunksOnComplete
	config.VerifyChunksOnDownload = c.VerifyChunksOnDownload
}
