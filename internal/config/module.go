package config

import (
	"github.com/siba-ai/siba-chat/internal/domain"
	"go.uber.org/fx"
)

func (c *Config) client() *ClientConfig   { return &c.Client }
func (c *Config) server() *ServerConfig   { return &c.Server }
func (c *Config) google() *GoogleConfig   { return &c.Google }
func (c *Config) logging() *LoggingConfig { return &c.Logging }

// Domain returns the institutional domain configured for this deployment.
func (c *Config) Domain() (domain.Domain, error) {
	return domain.New(c.Client.Domain, c.Client.DomainHeader)
}

// Module splits a supplied *Config into its sections.
var Module = fx.Module("config",
	fx.Provide(
		(*Config).client,
		(*Config).server,
		(*Config).google,
		(*Config).logging,
		(*Config).Domain,
	),
)
