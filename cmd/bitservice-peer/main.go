// Command bitservice-peer runs one party of the three-party replicated
// banlist: it owns a shard of the oblivious map, rendezvouses MPC sessions
// with its neighbors, and serves the read/ban/unban/prune request surface.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TaceoLabs/bitservice/internal/config"
	"github.com/TaceoLabs/bitservice/internal/crypto"
	"github.com/TaceoLabs/bitservice/internal/logging"
	"github.com/TaceoLabs/bitservice/internal/metrics"
	"github.com/TaceoLabs/bitservice/internal/obliviousmap"
	"github.com/TaceoLabs/bitservice/internal/peer"
	"github.com/TaceoLabs/bitservice/internal/persistence"
	"github.com/TaceoLabs/bitservice/internal/session"
	"github.com/TaceoLabs/bitservice/internal/worker"
)

func main() {
	v := viper.New()
	v.SetEnvPrefix("BITSERVICE")
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "bitservice-peer",
		Short: "Runs one replicated-banlist peer party",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(v)
		},
	}
	config.BindPeerFlags(cmd.Flags())
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(v *viper.Viper) error {
	cfg, err := config.LoadPeer(v)
	if err != nil {
		return err
	}
	log := logging.NewDefault(cfg.Environment == config.EnvironmentDev)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	identity, err := crypto.LoadPrivateKey(cfg.SecretKeyPath)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	peerMetrics := metrics.NewPeer(reg)

	store, err := persistence.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions := session.NewRegistry()
	reaper := session.NewReaper(sessions, cfg.PrevPeerWaitTimeout, cfg.PrevPeerWaitTimeout, log.With("component", "reaper"))
	go reaper.Run(ctx)

	var connector peer.Connector
	if cfg.NextPeerTCPAddr != "" {
		connector = peer.NewTCPConnector(cfg.NextPeerTCPAddr)
	} else {
		connector = peer.NewWSConnector(cfg.NextPeerWSURL)
	}

	pool := worker.NewPool(runtime.NumCPU())
	defer pool.Close()

	// The real oblivious-map algorithm is an external collaborator (see
	// internal/obliviousmap); Reference is the reference, non-production
	// stand-in that keeps this binary answering real traffic until that
	// collaborator is supplied.
	svc, err := peer.New(ctx, cfg.PartyID, obliviousmap.NewReference(cfg.PartyID), sessions, reaper, connector, cfg.PrevPeerWaitTimeout, store, pool, peerMetrics, log)
	if err != nil {
		return err
	}

	if cfg.TCPBindAddr != "" {
		ln, err := net.Listen("tcp", cfg.TCPBindAddr)
		if err != nil {
			return err
		}
		defer ln.Close()
		tcpListener := peer.NewTCPListener(sessions, log.With("component", "tcp_listener"))
		go func() {
			if err := tcpListener.Serve(ln); err != nil {
				log.Warnf("tcp listener stopped: %v", err)
			}
		}()
	}

	if cfg.Environment != config.EnvironmentDev {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api := peer.NewAPI(svc, identity)
	api.Register(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	srv := &http.Server{Addr: cfg.BindAddr, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.PrevPeerWaitTimeout)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("peer %d listening on %s", cfg.PartyID, cfg.BindAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
