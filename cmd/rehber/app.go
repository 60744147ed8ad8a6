package main

import (
	"context"

	"github.com/rehber/rehber/internal/client"
	"github.com/rehber/rehber/internal/config"
	"github.com/rehber/rehber/internal/middleware"
	"github.com/rehber/rehber/internal/repository"
	"github.com/rehber/rehber/internal/service"
	"github.com/rehber/rehber/internal/telemetry"
	"github.com/rehber/rehber/internal/util/logger"
)

// components are shared by serve and the one-shot tools.
type components struct {
	repo     *repository.JSONRepository
	images   *repository.FileImageStore
	metrics  *middleware.Metrics
	shipper  *telemetry.KafkaShipper
	redis    *client.RedisClient
	contacts service.ContactService
}

func (c *components) publisher() telemetry.Publisher {
	if c.shipper == nil {
		return telemetry.NopPublisher{}
	}
	return c.shipper
}

func buildComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	repo, err := repository.NewJSONRepository(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	repo.SetRetention(repository.RetentionPolicy{Keep: cfg.Backups.Keep, MaxAge: cfg.Backups.MaxAge})

	images, err := repository.NewFileImageStore(cfg.DataDir, cfg.Server.MaxUploadBytes)
	if err != nil {
		return nil, err
	}
	c := &components{repo: repo, images: images, metrics: middleware.NewMetrics()}

	if cfg.Telemetry.Kafka.Enabled {
		shipper, err := telemetry.NewKafkaShipper(cfg.Telemetry.Kafka)
		if err != nil {
			return nil, err
		}
		shipper.Start()
		c.shipper = shipper
		logger.Infof("kafka shipping enabled (brokers %v)", cfg.Telemetry.Kafka.Brokers)
	}

	if cfg.RedisURL != "" {
		rcfg, err := client.ConfigFromURL(cfg.RedisURL)
		if err != nil {
			c.close(ctx)
			return nil, err
		}
		rc, err := client.NewRedisClient(ctx, rcfg)
		if err != nil {
			logger.Warnf("redis unavailable, rate limiter falls back to memory: %v", err)
		} else {
			c.redis = rc
		}
	}

	c.contacts = service.NewContactService(service.Deps{
		Repo:    repo,
		Images:  images,
		Events:  c.publisher(),
		Metrics: c.metrics,
	})
	return c, nil
}

func (c *components) close(ctx context.Context) {
	if c.shipper != nil {
		c.shipper.Stop(ctx)
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			logger.Warnf("redis close: %v", err)
		}
	}
}
