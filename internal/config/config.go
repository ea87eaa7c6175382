// Package config loads the TOML configuration document that governs store
// layout, referential-integrity enforcement, event dispatch, and the
// request-scoped defaults folded into every LdpResource call.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// ReferentialIntegrity controls inbound-edge handling on writes and deletes.
type ReferentialIntegrity string

const (
	RefIntNone    ReferentialIntegrity = "none"
	RefIntLenient ReferentialIntegrity = "lenient"
	RefIntStrict  ReferentialIntegrity = "strict"
)

type StoreConfig struct {
	Path         string `toml:"path"`
	MapSizeBytes int64  `toml:"map_size_bytes"`
	KeyLength    int    `toml:"key_length"`
	HashAlgo     string `toml:"hash_algo"`
	LdpRs        LdpRsConfig `toml:"ldp_rs"`
}

type LdpRsConfig struct {
	ReferentialIntegrity ReferentialIntegrity `toml:"referential_integrity"`
}

type MessagingConfig struct {
	Enabled bool `toml:"enabled"`
}

type ServerConfig struct {
	Webroot      string `toml:"webroot"`
	DefaultActor string `toml:"default_actor"`
}

// Config is the root of the recognized TOML document described in SPEC_FULL
// §6 ("Configuration (recognized keys)").
type Config struct {
	Store     StoreConfig     `toml:"store"`
	Messaging MessagingConfig `toml:"messaging"`
	Server    ServerConfig    `toml:"server"`
}

// Default returns the configuration the example document in SPEC_FULL §6
// would produce, used when no config file is supplied.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Path:         "./data",
			MapSizeBytes: 1 << 40,
			KeyLength:    5,
			HashAlgo:     "sha1",
			LdpRs: LdpRsConfig{
				ReferentialIntegrity: RefIntLenient,
			},
		},
		Messaging: MessagingConfig{Enabled: false},
		Server: ServerConfig{
			Webroot:      "http://localhost:8080/fcrepo/rest",
			DefaultActor: "BypassAdmin",
		},
	}
}

// Load reads and parses the TOML document at path, filling in any key the
// document omits from Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.LdpRs.ReferentialIntegrity {
	case RefIntNone, RefIntLenient, RefIntStrict:
	default:
		return fmt.Errorf("config: store.ldp_rs.referential_integrity: unrecognized value %q", c.Store.LdpRs.ReferentialIntegrity)
	}
	if c.Store.KeyLength <= 0 {
		return fmt.Errorf("config: store.key_length must be positive")
	}
	return nil
}
