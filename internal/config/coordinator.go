// Package config loads coordinator and peer configuration, combining
// environment variables, a bound flag set and (for the relying-party peer
// map) a TOML file, mirroring bitservice-server/src/config.rs and
// bitservice-peer/src/config.rs's clap-derived configs.
package config

import (
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Environment mirrors the original_source's Environment enum.
type Environment string

const (
	EnvironmentProd Environment = "prod"
	EnvironmentDev  Environment = "dev"
)

// AssertIsDev panics if the environment is not dev, for code paths that must
// never run in production (matching Environment::assert_is_dev).
func (e Environment) AssertIsDev() {
	if e != EnvironmentDev {
		panic("bitservice: is not dev environment")
	}
}

// Coordinator is the coordinator process's configuration.
type Coordinator struct {
	Environment        Environment
	BindAddr           string
	RPPeersConfigPath  string
	PeerRequestTimeout time.Duration
	PruneWriteInterval int
	MaxNumReadTasks    int
	DatabaseURL        string
}

// BindCoordinatorFlags registers the coordinator's flags on fs, matching
// bitservice-server/src/config.rs's clap field set.
func BindCoordinatorFlags(fs *pflag.FlagSet) {
	fs.String("environment", "prod", "deployment environment (prod or dev)")
	fs.String("bind-addr", "0.0.0.0:4321", "HTTP bind address")
	fs.String("rp-bitservice-peers-config", "", "path to the RP id -> peer URLs TOML file")
	fs.Duration("peer-request-timeout", 60*time.Second, "timeout for a single peer request")
	fs.Int("prune-write-interval", 128, "writes between prune rounds")
	fs.Int("max-num-read-tasks", 4096, "bound on in-flight reads per relying party")
	fs.String("db-url", "", "Postgres connection string")
}

// LoadCoordinator reads a bound viper instance into a Coordinator config.
// Callers bind environment variable prefix "BITSERVICE" and flags via
// BindCoordinatorFlags before calling this.
func LoadCoordinator(v *viper.Viper) (Coordinator, error) {
	cfg := Coordinator{
		Environment:        Environment(v.GetString("environment")),
		BindAddr:           v.GetString("bind-addr"),
		RPPeersConfigPath:  v.GetString("rp-bitservice-peers-config"),
		PeerRequestTimeout: v.GetDuration("peer-request-timeout"),
		PruneWriteInterval: v.GetInt("prune-write-interval"),
		MaxNumReadTasks:    v.GetInt("max-num-read-tasks"),
		DatabaseURL:        v.GetString("db-url"),
	}
	if cfg.RPPeersConfigPath == "" {
		return Coordinator{}, errors.New("config: rp-bitservice-peers-config is required")
	}
	if cfg.DatabaseURL == "" {
		return Coordinator{}, errors.New("config: db-url is required")
	}
	return cfg, nil
}

// RPPeers is the relying-party id -> 3 peer URLs map, loaded from the TOML
// file named by Coordinator.RPPeersConfigPath. Mirrors the original_source's
// RpBitservicePeersConfig.
type RPPeers struct {
	RPBitservicePeers map[string][3]string `toml:"rp_bitservice_peers"`
}

// LoadRPPeers parses the TOML-encoded relying-party peer map.
func LoadRPPeers(data []byte) (RPPeers, error) {
	var cfg RPPeers
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return RPPeers{}, errors.Wrap(err, "config: parsing rp peers toml")
	}
	return cfg, nil
}
