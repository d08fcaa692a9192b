package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/danielpatrickdp/medalfit/internal/inference"
	"github.com/danielpatrickdp/medalfit/internal/serving"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve predictions over gRPC",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		logger := newLogger(cfg)
		dir := stringFlag(cmd, "model-dir", cfg.OutDir)
		addr := stringFlag(cmd, "addr", cfg.Addr)

		b, err := inference.LoadBundle(dir)
		if err != nil {
			return err
		}
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("serving", "addr", lis.Addr().String(), "model_dir", dir, "classes", b.Classes())
		if err := serving.Serve(ctx, lis, serving.NewServer(b, logger)); err != nil {
			return err
		}
		logger.Info("stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("model-dir", "", "directory with the exported model (overrides OUT_DIR)")
	serveCmd.Flags().String("addr", "", "listen address (overrides PREDICT_ADDR)")
}

