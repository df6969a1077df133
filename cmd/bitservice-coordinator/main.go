// Command bitservice-coordinator runs the stateless front door that routes
// client requests to the correct relying party's three peers and enforces
// the read/write ordering queue.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TaceoLabs/bitservice/internal/config"
	"github.com/TaceoLabs/bitservice/internal/coordinator"
	"github.com/TaceoLabs/bitservice/internal/logging"
	"github.com/TaceoLabs/bitservice/internal/metrics"
)

func main() {
	v := viper.New()
	v.SetEnvPrefix("BITSERVICE")
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "bitservice-coordinator",
		Short: "Routes client requests to their relying party's peer triple",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(v)
		},
	}
	config.BindCoordinatorFlags(cmd.Flags())
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
	cfg, err := config.LoadCoordinator(v)
	if err != nil {
		return err
	}
	log := logging.NewDefault(cfg.Environment == config.EnvironmentDev)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rpPeersData, err := os.ReadFile(cfg.RPPeersConfigPath)
	if err != nil {
		return err
	}
	rpPeers, err := config.LoadRPPeers(rpPeersData)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	coordMetrics := metrics.NewCoordinator(reg)

	coord := coordinator.New(rpPeers.RPBitservicePeers, cfg.PruneWriteInterval, cfg.MaxNumReadTasks, cfg.PeerRequestTimeout, coordMetrics, log)

	if cfg.Environment != config.EnvironmentDev {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	coord.Register(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	srv := &http.Server{Addr: cfg.BindAddr, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.PeerRequestTimeout)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("coordinator listening on %s", cfg.BindAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
