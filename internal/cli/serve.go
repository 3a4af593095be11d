package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"GigScout/internal/api"
	"GigScout/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动HTTP服务（scan.interval>0 时同时定时扫描）",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(a.cfg.Server.Mode)
	router := api.NewRouter(api.Handlers{
		Scan:        api.NewScanHandler(a.scanner, a.cfg.Scan.CronSecret, a.logger),
		Opportunity: api.NewOpportunityHandler(a.opportunity, a.logger),
		Sanity:      api.NewSanityHandler(a.sanity),
		Pprof:       a.cfg.Server.Pprof,
	})
	a.logger.Infof("Gin运行模式: %s", a.cfg.Server.Mode)

	if a.cfg.Scan.Interval > 0 {
		go a.scheduleScans(ctx, a.cfg.Scan.Interval)
	}

	srv := &http.Server{Addr: fmt.Sprintf(":%d", a.cfg.Server.Port), Handler: router}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("服务启动成功，端口：%d", a.cfg.Server.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("启动服务失败: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("收到退出信号，正在关闭服务")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// scheduleScans 定时触发扫描；上一次未结束时本次跳过
func (a *app) scheduleScans(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	a.logger.WithField("interval", interval).Info("定时扫描已启用")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.scanner.Run(ctx); err != nil {
				if errors.Is(err, service.ErrScanInProgress) {
					a.logger.Info("上一次扫描尚未结束，跳过本次")
					continue
				}
				a.logger.WithError(err).Error("定时扫描失败")
			}
		}
	}
}
