package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bricks-cloud/byokllm/internal/config"
	"github.com/bricks-cloud/byokllm/internal/logger/zap"
	"github.com/bricks-cloud/byokllm/internal/server/web/proxy"
	"github.com/bricks-cloud/byokllm/internal/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	modePtr := flag.String("m", "dev", "select the mode that byokllm runs in")
	privacyPtr := flag.String("p", "info", "select the privacy mode that byokllm runs in")
	flag.Parse()

	// Absence of a .env file is fine, the environment may carry everything.
	godotenv.Load()

	log := zap.NewLogger(*modePtr)
	defer log.Sync()

	gin.SetMode(gin.ReleaseMode)

	cfg, err := config.ParseEnvVariables()
	if err != nil {
		log.Sugar().Fatalf("cannot parse environment variables: %v", err)
	}

	if err := telemetry.Init(cfg); err != nil {
		log.Sugar().Fatalf("cannot initialize telemetry: %v", err)
	}

	otelShutdown, err := telemetry.SetupOTelSDK(context.Background(), cfg)
	if err != nil {
		log.Sugar().Fatalf("cannot initialize open telemetry sdk: %v", err)
	}

	ps, err := proxy.NewProxyServer(log, *modePtr, *privacyPtr, cfg)
	if err != nil {
		log.Sugar().Fatalf("error creating relay http server: %v", err)
	}

	ps.Run()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Sugar().Infof("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ps.Shutdown(ctx); err != nil {
		log.Sugar().Debugf("relay server shutdown: %v", err)
	}

	if err := otelShutdown(context.Background()); err != nil {
		log.Sugar().Debugf("open telemetry shutdown: %v", err)
	}

	log.Sugar().Infof("server exited")
}
