package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cybroslabs/dlms-push-listener/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	rootCmd = &cobra.Command{
		Use:          "dlmspushd",
		Short:        "DLMS/COSEM push listener",
		Long:         "dlmspushd receives DLMS/COSEM data notifications over TCP, UDP or a serial line, acknowledges them and stores them as daily JSON files.",
		SilenceUsage: true,
	}

	debug      bool
	configFile string
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging including RX/TX dumps")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultFile, "configuration file")
	rootCmd.AddCommand(newServeCmd(), newDecodeCmd(), newReportCmd())
}

func newLogger() (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
