package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/rehber/rehber/internal/util/logger"
)

// RemoteConfig names parameters that override connection settings when the
// server runs on a host that keeps them in AWS instead of the YAML file.
type RemoteConfig struct {
	Region                string `yaml:"region" env:"AWS_REGION"`
	RedisURLParameter     string `yaml:"redis_url_parameter" env:"REDIS_URL_PARAMETER"`
	RedisURLSecret        string `yaml:"redis_url_secret" env:"REDIS_URL_SECRET"`
	KafkaBrokersParameter string `yaml:"kafka_brokers_parameter" env:"KAFKA_BROKERS_PARAMETER"`
}

// Enabled reports whether any remote value is configured.
func (r RemoteConfig) Enabled() bool {
	return r.RedisURLParameter != "" || r.RedisURLSecret != "" || r.KafkaBrokersParameter != ""
}

// SSMParameterStoreClient is the part of the SSM client the loader uses.
type SSMParameterStoreClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SecretsManagerClient is the part of the Secrets Manager client the loader uses.
type SecretsManagerClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// RemoteLoader reads values from Parameter Store and Secrets Manager.
type RemoteLoader struct {
	ssm     SSMParameterStoreClient
	secrets SecretsManagerClient
}

var errNilValue = errors.New("value is nil")

// NewRemoteLoader builds both clients from the default AWS credential chain.
func NewRemoteLoader(ctx context.Context, region string) (*RemoteLoader, error) {
	var opts []func(*awscfg.LoadOptions) error
	if region != "" {
		opts = append(opts, awscfg.WithRegion(region))
	}
	awsConf, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &RemoteLoader{
		ssm:     ssm.NewFromConfig(awsConf),
		secrets: secretsmanager.NewFromConfig(awsConf),
	}, nil
}

// NewRemoteLoaderWithClients is used by tests and by callers that already
// hold configured clients.
func NewRemoteLoaderWithClients(p SSMParameterStoreClient, s SecretsManagerClient) *RemoteLoader {
	return &RemoteLoader{ssm: p, secrets: s}
}

// GetParameter retrieves a decrypted parameter from SSM.
func (l *RemoteLoader) GetParameter(ctx context.Context, name string) (string, error) {
	logger.Debugf("[RemoteLoader] Retrieving parameter: %s", name)
	out, err := l.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s: %w", name, errNilValue)
	}
	return *out.Parameter.Value, nil
}

// GetSecret retrieves a secret string from Secrets Manager.
func (l *RemoteLoader) GetSecret(ctx context.Context, id string) (string, error) {
	logger.Debugf("[RemoteLoader] Retrieving secret: %s", id)
	out, err := l.secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", id, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s: %w", id, errNilValue)
	}
	return *out.SecretString, nil
}

// ApplyRemote overwrites the fields named in cfg.Remote. The secret wins over
// the parameter when both name a Redis URL.
func ApplyRemote(ctx context.Context, cfg *Config, l *RemoteLoader) error {
	r := cfg.Remote
	if r.RedisURLParameter != "" {
		v, err := l.GetParameter(ctx, r.RedisURLParameter)
		if err != nil {
			return err
		}
		cfg.RedisURL = strings.TrimSpace(v)
	}
	if r.RedisURLSecret != "" {
		v, err := l.GetSecret(ctx, r.RedisURLSecret)
		if err != nil {
			return err
		}
		cfg.RedisURL = strings.TrimSpace(v)
	}
	if r.KafkaBrokersParameter != "" {
		v, err := l.GetParameter(ctx, r.KafkaBrokersParameter)
		if err != nil {
			return err
		}
		cfg.Telemetry.Kafka.Brokers = splitList(v)
	}
	logger.Infof("[RemoteLoader] Applied remote settings")
	return validate(cfg)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
