// Command moltpoolctl is a thin CLI demonstrating gateway.Facade: it
// brings up a pool against the moltpool-worker binary, routes one
// request, prints the status snapshot, and shuts the pool back down.
// It exists for manual exercise of the pool, not as a production
// ingress — real callers embed gateway.Facade directly.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/moltpool/pkg/config"
	"github.com/cuemby/moltpool/pkg/gateway"
	"github.com/cuemby/moltpool/pkg/log"
	"github.com/cuemby/moltpool/pkg/metrics"
)

var (
	Version = "dev"

	workerBinPath string
	configPath    string
	metricsAddr   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "moltpoolctl",
	Short:   "moltpoolctl drives a moltpool worker pool for manual testing",
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&workerBinPath, "worker-bin", "moltpool-worker", "Path to the moltpool-worker binary")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "127.0.0.1:9090", "Metrics/health HTTP listen address")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(demoCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Start a pool, route one agent request, print status, then stop",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		f, err := gateway.New(cfg, workerBinPath)
		if err != nil {
			return fmt.Errorf("failed to construct gateway: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		if err := f.Start(ctx); err != nil {
			return fmt.Errorf("failed to start pool: %w", err)
		}
		defer f.Stop(cfg.ShutdownGracePeriod)

		collector := metrics.NewCollector(f.Supervisor())
		collector.Start()
		defer collector.Stop()

		subscribeStop := make(chan struct{})
		metrics.Subscribe(f.Events(), subscribeStop)
		defer close(subscribeStop)

		metrics.SetVersion(Version)
		metrics.RegisterComponent("pool", true, "started")
		metrics.RegisterComponent("router", true, "started")
		metrics.RegisterComponent("gateway", true, "started")

		go serveMetrics(metricsAddr)
		fmt.Printf("metrics: http://%s/metrics\n", metricsAddr)

		resp := f.Route(ctx, gateway.GatewayRequest{
			UserID: "demo-user",
			Type:   "agent",
		})
		out, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(out))

		status := f.GetStatus()
		statusOut, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(statusOut))

		return nil
	},
}
