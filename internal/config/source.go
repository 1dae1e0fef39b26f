package config

import (
	"github.com/dkeye/pttstar/internal/core"
	"github.com/dkeye/pttstar/internal/domain"
)

// Source serves the loaded client config as read-only snapshots.
type Source struct {
	cfg ClientConfig
}

var _ core.ConfigSource = (*Source)(nil)

func NewSource(cfg ClientConfig) *Source {
	return &Source{cfg: cfg}
}

func (s *Source) Connection() (domain.ConnectionConfig, error) {
	return s.cfg.Connection.Build()
}

func (s *Source) Profile() domain.Profile {
	return s.cfg.Profile
}
