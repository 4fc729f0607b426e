package main

import (
	"os"
	"path/filepath"
	"testing"

	"go-aadhaar-scanner/document/aadhaar"

	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
	"server_config": {"host": "0.0.0.0", "port": 8080},
	"log_level": "debug",
	"jwt_private_key_path": "/secrets/priv.pem",
	"irma_server_url": "https://irma.example",
	"issuer_id": "aadhaar_issuer",
	"aadhaar_credential": "pbdf-staging.pbdf.aadhaar",
	"sd_jwt_batch_size": 10,
	"face_verification_url": "http://faceapi:41101",
	"secure_qr": {"flag_skip": "none"},
	"storage_type": "redis",
	"redis_config": {"host": "redis", "port": 6379, "password": "pw", "namespace": "aadhaar-scanner"}
}`

func validConfig() Config {
	return Config{
		ServerConfig:      ServerConfig{Host: "localhost", Port: 8080},
		JwtPrivateKeyPath: "priv.pem",
		IrmaServerUrl:     "https://irma.example",
		IssuerId:          testIssuerId,
		AadhaarCredential: testCredential,
		SdJwtBatchSize:    10,
		StorageType:       "memory",
	}
}

func TestReadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	config, err := readConfigFile(path)
	require.NoError(t, err)
	require.Equal(t, 8080, config.ServerConfig.Port)
	require.Equal(t, "debug", config.LogLevel)
	require.Equal(t, "pbdf-staging.pbdf.aadhaar", config.AadhaarCredential)
	require.Equal(t, uint(10), config.SdJwtBatchSize)
	require.Equal(t, "http://faceapi:41101", config.FaceVerificationUrl)
	require.Equal(t, "none", config.SecureQr.FlagSkip)
	require.Equal(t, "redis", config.StorageType)
	require.Equal(t, 6379, config.RedisConfig.Port)
	require.Equal(t, "aadhaar-scanner", config.RedisConfig.Namespace)
	require.NoError(t, config.Validate())

	t.Run("missing file", func(t *testing.T) {
		_, err := readConfigFile(filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
		_, err := readConfigFile(path)
		require.Error(t, err)
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"port zero", func(c *Config) { c.ServerConfig.Port = 0 }, "server_config.port"},
		{"port too large", func(c *Config) { c.ServerConfig.Port = 70000 }, "server_config.port"},
		{"tls without paths", func(c *Config) { c.ServerConfig.UseTls = true }, "use_tls requires"},
		{"no private key", func(c *Config) { c.JwtPrivateKeyPath = "" }, "jwt_private_key_path is required"},
		{"no credential", func(c *Config) { c.AadhaarCredential = "" }, "aadhaar_credential is required"},
		{"no storage type", func(c *Config) { c.StorageType = "" }, "storage_type is required"},
		{"zero batch size", func(c *Config) { c.SdJwtBatchSize = 0 }, "sd_jwt_batch_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)
			err := config.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}

	t.Run("all problems reported", func(t *testing.T) {
		err := (&Config{}).Validate()
		require.ErrorContains(t, err, "server_config.port")
		require.ErrorContains(t, err, "issuer_id is required")
		require.ErrorContains(t, err, "irma_server_url is required")
	})
}

func TestCreateTokenStorage(t *testing.T) {
	storage, err := createTokenStorage(&Config{StorageType: "memory"})
	require.NoError(t, err)
	require.IsType(t, &InMemoryTokenStorage{}, storage)

	_, err = createTokenStorage(&Config{StorageType: "postgres"})
	require.ErrorContains(t, err, "postgres is not a valid storage type")

	config := Config{StorageType: "redis"}
	config.RedisConfig.Host = "localhost"
	_, err = createTokenStorage(&config)
	require.ErrorContains(t, err, "invalid address")
}

func TestNewDecoder(t *testing.T) {
	for _, name := range []string{"", "heuristic", "none"} {
		decoder, err := newDecoder(SecureQrConfig{FlagSkip: name})
		require.NoError(t, err, name)
		require.NotNil(t, decoder)
	}

	_, err := newDecoder(SecureQrConfig{FlagSkip: "guess"})
	require.ErrorContains(t, err, `unknown flag skip strategy "guess"`)
}

func TestAadhaarDataConverterImpl(t *testing.T) {
	record, err := aadhaar.DecodeAadhaarQr(sampleXmlPayload)
	require.NoError(t, err)

	data, err := AadhaarDataConverterImpl{}.ToAadhaarData(record, "")
	require.NoError(t, err)
	require.Equal(t, "XXXXXXXX9012", data.MaskedUid)
	require.Equal(t, "Ravi", data.FirstName)
	require.Equal(t, "Sharma", data.LastName)
	require.Equal(t, "Yes", data.Over18)
	require.Equal(t, "560038", data.Pincode)
}
