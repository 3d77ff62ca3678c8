package database

import (
	"time"

	"github.com/Engagic/engagic/pkg/config"
)

// ConfigFrom maps the YAML database section onto a connection Config,
// resolving the password from the environment.
func ConfigFrom(c *config.DatabaseConfig) Config {
	return Config{
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password(),
		Database:        c.Name,
		SSLMode:         c.SSLMode,
		MinConns:        c.PoolMin,
		MaxConns:        c.PoolMax,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}
