package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sasank-xyz/github-for-jira/internal/config"
	"github.com/sasank-xyz/github-for-jira/internal/ghclient"
	"github.com/sasank-xyz/github-for-jira/internal/tokenstore"
)

type Factory struct {
	// ConfigPath points to the service configuration (app identity, cache, http).
	ConfigPath string
}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) LoadConfig() (*config.Config, error) {
	path := f.ConfigPath // prio 1: command-line flag
	if path == "" {
		path = viper.GetString(ConfigKey) // prio 2: user config/env
	}
	if path == "" {
		return nil, fmt.Errorf("config file not specified (use --config or set GH4J_CONFIG)")
	}
	return config.Load(path)
}

// GetClient builds an authenticated GitHub client from the configuration.
// The returned close function releases the token store connection, if any.
func (f *Factory) GetClient(ctx context.Context) (*ghclient.Client, func(), error) {
	cfg, err := f.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	key, err := cfg.App.KeyBytes()
	if err != nil {
		return nil, nil, err
	}

	clientCfg := ghclient.Config{
		AppID:                  cfg.App.AppID,
		PrivateKey:             key,
		ServerURL:              cfg.App.ServerURL,
		GraphQLURL:             cfg.App.GraphQLURL,
		MaxCachedInstallations: cfg.Cache.MaxEntries,
		Timeout:                cfg.HTTP.Timeout,
	}

	closeFn := func() {}
	if cfg.Cache.RedisURL != "" {
		store, err := tokenstore.NewRedisTokenStoreFromURL(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("creating token store: %w", err)
		}
		log.Debug().Msg("using redis token store")
		clientCfg.Store = store
		closeFn = func() {
			_ = store.Close()
		}
	}

	client, err := ghclient.New(clientCfg)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("creating github client: %w", err)
	}
	return client, closeFn, nil
}

func (f *Factory) bindConfigFlag(flags *pflag.FlagSet) {
	flags.StringVarP(&f.ConfigPath, "config", "f", "", "The service config file to use")
}
