package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go-aadhaar-scanner/logging"
	redis "go-aadhaar-scanner/redis"

	"github.com/joho/godotenv"
)

const configPathEnv = "AADHAAR_SCANNER_CONFIG"

type Config struct {
	ServerConfig ServerConfig `json:"server_config"`
	LogLevel     string       `json:"log_level,omitempty"`

	JwtPrivateKeyPath string `json:"jwt_private_key_path"`
	IrmaServerUrl     string `json:"irma_server_url"`
	IssuerId          string `json:"issuer_id"`
	AadhaarCredential string `json:"aadhaar_credential"`
	SdJwtBatchSize    uint   `json:"sd_jwt_batch_size"`

	FaceVerificationUrl string         `json:"face_verification_url,omitempty"`
	SecureQr            SecureQrConfig `json:"secure_qr,omitempty"`

	StorageType         string                    `json:"storage_type"`
	RedisConfig         redis.RedisConfig         `json:"redis_config,omitempty"`
	RedisSentinelConfig redis.RedisSentinelConfig `json:"redis_sentinel_config,omitempty"`
}

// Validate reports every missing or invalid required field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.ServerConfig.Port <= 0 || c.ServerConfig.Port > 65535 {
		errs = append(errs, fmt.Errorf("server_config.port %d is out of range", c.ServerConfig.Port))
	}
	if c.ServerConfig.UseTls && (c.ServerConfig.TlsCertPath == "" || c.ServerConfig.TlsPrivKeyPath == "") {
		errs = append(errs, errors.New("server_config: use_tls requires tls_cert_path and tls_priv_key_path"))
	}
	required := []struct {
		name  string
		value string
	}{
		{"jwt_private_key_path", c.JwtPrivateKeyPath},
		{"irma_server_url", c.IrmaServerUrl},
		{"issuer_id", c.IssuerId},
		{"aadhaar_credential", c.AadhaarCredential},
		{"storage_type", c.StorageType},
	}
	for _, field := range required {
		if field.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", field.name))
		}
	}
	if c.SdJwtBatchSize == 0 {
		errs = append(errs, errors.New("sd_jwt_batch_size must be at least 1"))
	}
	return errors.Join(errs...)
}

func main() {
	// A missing .env file is fine, the environment may be set otherwise
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv(configPathEnv), "Path for the config.json to use")
	flag.Parse()

	if *configPath == "" {
		fatal("please provide a config path using the --config flag or " + configPathEnv)
	}

	config, err := readConfigFile(*configPath)
	if err != nil {
		fatal("failed to read config file", "error", err)
	}

	logging.InitLogger(config.LogLevel)
	slog.Info("Using config", "path", *configPath)

	if err := config.Validate(); err != nil {
		fatal("invalid config", "error", err)
	}

	jwtCreator, err := NewIrmaJwtCreator(
		config.JwtPrivateKeyPath,
		config.IssuerId,
		config.AadhaarCredential,
		config.SdJwtBatchSize,
	)
	if err != nil {
		fatal("failed to instantiate jwt creator", "error", err)
	}

	tokenStorage, err := createTokenStorage(&config)
	if err != nil {
		fatal("failed to instantiate token storage", "error", err)
	}

	decoder, err := newDecoder(config.SecureQr)
	if err != nil {
		fatal("failed to configure decoder", "error", err)
	}

	serverState := ServerState{
		irmaServerURL:  config.IrmaServerUrl,
		jwtCreator:     jwtCreator,
		tokenStorage:   tokenStorage,
		decoder:        decoder,
		photoConverter: newPhotoConverter(),
		converter:      AadhaarDataConverterImpl{},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.FaceVerificationUrl != "" {
		faceClient := NewRegulaFaceClient(config.FaceVerificationUrl)
		if err := faceClient.HealthCheck(ctx); err != nil {
			slog.Warn("Face verification service not reachable at startup", "url", config.FaceVerificationUrl, "error", err)
		}
		serverState.faceVerificationClient = faceClient
	}

	server, err := NewServer(&serverState, config.ServerConfig)
	if err != nil {
		fatal("failed to create server", "error", err)
	}

	go func() {
		<-ctx.Done()
		_ = server.Stop()
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal("failed to listen and serve", "error", err)
	}
}

func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}

func readConfigFile(path string) (Config, error) {
	configBytes, err := os.ReadFile(path)

	if err != nil {
		return Config{}, err
	}

	var config Config
	err = json.Unmarshal(configBytes, &config)

	if err != nil {
		return Config{}, err
	}

	return config, nil
}

func createTokenStorage(config *Config) (TokenStorage, error) {
	switch config.StorageType {
	case "redis":
		slog.Info("Using redis token storage")
		client, err := redis.NewRedisClient(&config.RedisConfig)
		if err != nil {
			return nil, err
		}
		return NewRedisTokenStorage(client, config.RedisConfig.Namespace), nil
	case "redis_sentinel":
		slog.Info("Using redis sentinel token storage")
		client, err := redis.NewRedisSentinelClient(&config.RedisSentinelConfig)
		if err != nil {
			return nil, err
		}
		return NewRedisTokenStorage(client, config.RedisSentinelConfig.Namespace), nil
	case "memory":
		slog.Info("Using in memory token storage")
		return NewInMemoryTokenStorage(), nil
	}
	return nil, fmt.Errorf("%v is not a valid storage type", config.StorageType)
}
