package config

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSSM map[string]string

func (f fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	v, ok := f[aws.ToString(in.Name)]
	if !ok {
		return nil, errors.New("ParameterNotFound")
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Value: aws.String(v)}}, nil
}

type fakeSecrets map[string]string

func (f fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	v, ok := f[aws.ToString(in.SecretId)]
	if !ok {
		return &secretsmanager.GetSecretValueOutput{}, nil
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
}

func TestApplyRemoteOverridesConnectionSettings(t *testing.T) {
	cfg := &Config{Port: 8000, RedisURL: "redis://local:6379"}
	cfg.Telemetry.Kafka.Enabled = true
	cfg.Telemetry.Kafka.Brokers = []string{"local:9092"}
	cfg.Remote = RemoteConfig{
		RedisURLParameter:     "/rehber/redis",
		KafkaBrokersParameter: "/rehber/brokers",
	}
	require.True(t, cfg.Remote.Enabled())

	l := NewRemoteLoaderWithClients(
		fakeSSM{"/rehber/redis": " redis://cache:6379/2 \n", "/rehber/brokers": "k1:9092, k2:9092,"},
		fakeSecrets{},
	)
	require.NoError(t, ApplyRemote(context.Background(), cfg, l))

	assert.Equal(t, "redis://cache:6379/2", cfg.RedisURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Telemetry.Kafka.Brokers)
}

func TestApplyRemoteSecretWinsOverParameter(t *testing.T) {
	cfg := &Config{Remote: RemoteConfig{RedisURLParameter: "p", RedisURLSecret: "s"}}
	l := NewRemoteLoaderWithClients(fakeSSM{"p": "redis://param"}, fakeSecrets{"s": "redis://secret"})

	require.NoError(t, ApplyRemote(context.Background(), cfg, l))
	assert.Equal(t, "redis://secret", cfg.RedisURL)
}

func TestApplyRemoteErrors(t *testing.T) {
	cfg := &Config{Remote: RemoteConfig{RedisURLParameter: "missing"}}
	err := ApplyRemote(context.Background(), cfg, NewRemoteLoaderWithClients(fakeSSM{}, fakeSecrets{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")

	cfg = &Config{Remote: RemoteConfig{RedisURLSecret: "empty"}}
	err = ApplyRemote(context.Background(), cfg, NewRemoteLoaderWithClients(fakeSSM{}, fakeSecrets{}))
	assert.ErrorIs(t, err, errNilValue)
}

func TestRemoteDisabledByDefault(t *testing.T) {
	assert.False(t, RemoteConfig{Region: "eu-central-1"}.Enabled())
}
