package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pawnarena/config"
	"pawnarena/server"
)

// PawnArena 入口：加载配置，启动 HTTP + WebSocket 服务，并初始化房间管理器
func main() {
	var cfgPath, addr string
	flag.StringVar(&cfgPath, "config", "", "path to YAML config (optional)")
	flag.StringVar(&addr, "addr", "", "server listen address, overrides config, e.g. :8080")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.Addr = addr
	}

	// 使用第三方 zap 日志库写入文件（带滚动）
	if err := server.InitLogger(cfg.Log); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer server.SyncLogger()

	rm := server.InitRoomManager(cfg)
	// 先预创建默认房间，便于快速试跑
	if _, err := rm.GetOrCreateRoom(cfg.Room.Default); err != nil {
		server.Log.Fatalf("default room: %v", err)
	}

	if cfgPath != "" {
		w, err := config.Watch(cfgPath, server.Log, func(c config.Config) {
			if err := rm.ApplyTunables(c.Room.Tunables); err != nil {
				server.Log.Warnf("apply tunables: %v", err)
			}
		})
		if err != nil {
			server.Log.Warnf("config watch disabled: %v", err)
		} else {
			defer w.Close()
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", server.HandleWS)
	// 前后端分离：将 / 映射到 web 目录的静态资源
	mux.Handle("/", http.FileServer(http.Dir("web")))
	// 管理与监控接口
	mux.HandleFunc("/admin/config", server.HandleAdminConfig)
	mux.HandleFunc("/admin/rooms", server.HandleRooms)
	mux.HandleFunc("/metrics", server.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		server.Log.Infof("PawnArena listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		server.Log.Warnf("http shutdown: %v", err)
	}
	rm.Shutdown()
}
