package main

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

type CloudConfig struct {
	cfg    aws.Config
	region string
}

type Option func(*CloudConfig)

func withRegion(region string) Option {
	return func(cc *CloudConfig) {
		cc.region = region
	}
}

func mustInitConfig(ctx context.Context, opts ...Option) *CloudConfig {
	defaultOpts := &CloudConfig{
		cfg:    aws.Config{},
		region: "",
	}

	for _, opt := range opts {
		opt(defaultOpts)
	}

	var loadOpts []func(*config.LoadOptions) error
	if defaultOpts.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(defaultOpts.region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		panic(err)
	}

	defaultOpts.cfg = cfg
	return defaultOpts
}

func (c *CloudConfig) establishClientsWith(opts ...ServiceOpt) *ServiceConfig {
	o := &ServiceConfig{}

	for _, opt := range opts {
		opt(c.cfg, o)
	}

	return o
}

type ServiceConfig struct {
	sns     *sns.Client
	ssm     *ssm.Client
	secrets *secretsmanager.Client
}

type ServiceOpt func(aws.Config, *ServiceConfig)

func snsService() ServiceOpt {
	return func(cfg aws.Config, sc *ServiceConfig) {
		sc.sns = sns.NewFromConfig(cfg)
	}
}

func ssmService() ServiceOpt {
	return func(cfg aws.Config, sc *ServiceConfig) {
		sc.ssm = ssm.NewFromConfig(cfg)
	}
}

func secretsService() ServiceOpt {
	return func(cfg aws.Config, sc *ServiceConfig) {
		sc.secrets = secretsmanager.NewFromConfig(cfg)
	}
}
