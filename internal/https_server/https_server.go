// Package https_server HTTP/HTTPS 服务启动与优雅停机
package https_server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pulse_chat_server/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Run 启动服务并阻塞到收到退出信号
// 配置了证书时监听 HTTPS 并启用明文跳转，否则退回 HTTP
func Run(engine *gin.Engine, onShutdown func()) {
	conf := config.GetConfig()
	addr := fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port)

	useTLS := conf.MainConfig.CertFile != "" && conf.MainConfig.KeyFile != ""

	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		var err error
		if useTLS {
			zap.L().Info("HTTPS server listening", zap.String("addr", addr))
			err = srv.ListenAndServeTLS(conf.MainConfig.CertFile, conf.MainConfig.KeyFile)
		} else {
			zap.L().Info("HTTP server listening", zap.String("addr", addr))
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("服务启动失败", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("收到退出信号，开始停机")

	if onShutdown != nil {
		onShutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("停机超时", zap.Error(err))
	}
	zap.L().Info("服务已退出")
}
