package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go-tenantadmin/internal/boot"

	"go.uber.org/zap"
)

// resolveConfigPath CONFIG_PATH 优先，缺省 dev 配置，最后回退 example
func resolveConfigPath() string {
	p := os.Getenv("CONFIG_PATH")
	if p == "" {
		p = "configs/config.dev.yaml"
	}
	if _, err := os.Stat(p); err != nil {
		fallback := "configs/config.example.yaml"
		if _, err2 := os.Stat(fallback); err2 != nil {
			log.Fatalf("config file not found: %s (fallback %s also missing)", p, fallback)
		}
		log.Printf("config %s not found, fallback to %s", p, fallback)
		p = fallback
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return p
}

func main() {
	cfgPath := resolveConfigPath()

	app, err := boot.InitApp(cfgPath)
	if err != nil {
		log.Fatalf("init app: %v", err)
	}

	srv := &http.Server{
		Addr:              app.Config.HTTP.Addr,
		Handler:           app.HTTP,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		app.Logger.Info("http_server_start",
			zap.String("addr", app.Config.HTTP.Addr),
			zap.String("app", app.Config.AppMeta.Name),
			zap.String("version", app.Config.AppMeta.Version),
			zap.String("env", app.Config.AppMeta.Env),
			zap.String("config", cfgPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	app.Logger.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Warn("http_shutdown", zap.Error(err))
	}
	app.Close()
	app.Logger.Info("cleanup_done")
}
