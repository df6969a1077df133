package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Peer is one peer process's configuration, mirroring
// bitservice-peer/src/config.rs's BitservicePeerConfig (trimmed to the
// artifacts this implementation actually needs: the oblivious map's
// proving material lives with the external collaborator, not here).
type Peer struct {
	Environment        Environment
	BindAddr           string
	TCPBindAddr        string
	PartyID            uint8
	NextPeerWSURL      string
	NextPeerTCPAddr    string
	PrevPeerWaitTimeout time.Duration
	SecretKeyPath      string
	DatabaseURL        string
}

// BindPeerFlags registers the peer's flags on fs.
func BindPeerFlags(fs *pflag.FlagSet) {
	fs.String("environment", "prod", "deployment environment (prod or dev)")
	fs.String("bind-addr", "", "HTTP/WS bind address")
	fs.String("tcp-mpc-net-bind-addr", "", "TCP MPC transport bind address")
	fs.Uint8("party-id", 0, "this peer's party id (0, 1 or 2)")
	fs.String("next-peer", "", "next peer's websocket URL")
	fs.String("tcp-next-peer", "", "next peer's TCP address")
	fs.Duration("prev-peer-wait-timeout", 30*time.Second, "timeout waiting for the previous peer to connect")
	fs.String("secret-key-path", "", "path to this peer's sealed-box private key")
	fs.String("db-url", "", "Postgres connection string")
}

// LoadPeer reads a bound viper instance into a Peer config.
func LoadPeer(v *viper.Viper) (Peer, error) {
	cfg := Peer{
		Environment:         Environment(v.GetString("environment")),
		BindAddr:            v.GetString("bind-addr"),
		TCPBindAddr:         v.GetString("tcp-mpc-net-bind-addr"),
		PartyID:             uint8(v.GetUint("party-id")),
		NextPeerWSURL:       v.GetString("next-peer"),
		NextPeerTCPAddr:     v.GetString("tcp-next-peer"),
		PrevPeerWaitTimeout: v.GetDuration("prev-peer-wait-timeout"),
		SecretKeyPath:       v.GetString("secret-key-path"),
		DatabaseURL:         v.GetString("db-url"),
	}
	if cfg.PartyID > 2 {
		return Peer{}, errors.Errorf("config: party-id must be 0, 1 or 2, got %d", cfg.PartyID)
	}
	if cfg.BindAddr == "" {
		return Peer{}, errors.New("config: bind-addr is required")
	}
	if cfg.SecretKeyPath == "" {
		return Peer{}, errors.New("config: secret-key-path is required")
	}
	if cfg.DatabaseURL == "" {
		return Peer{}, errors.New("config: db-url is required")
	}
	return cfg, nil
}
