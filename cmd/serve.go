package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fachebot/cross-swap-api/internal/logger"
	"github.com/fachebot/cross-swap-api/internal/server"
	"github.com/fachebot/cross-swap-api/internal/svc"
	"github.com/fachebot/cross-swap-api/internal/swapapi"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svcCtx, err := svc.NewServiceContext(ctx, c)
	if err != nil {
		return err
	}
	defer svcCtx.Close()

	srv := server.NewServer(c.Server, swapapi.NewService(svcCtx))
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// 等待程序退出
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err = <-errCh:
		if err != nil {
			logger.Errorf("[Server] 服务异常退出, %v", err)
			return err
		}
		return nil
	case <-sigCh:
	}

	logger.Infof("[Server] 收到退出信号, 正在关闭服务")
	if err = srv.Shutdown(ctx); err != nil {
		logger.Warnf("[Server] 关闭服务失败, %v", err)
	}
	logger.Infof("[Server] 服务已停止")
	return nil
}
