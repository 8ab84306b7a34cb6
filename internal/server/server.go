package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/zhitaogpt/BinanceAlphaTool/internal/controller"
	"github.com/zhitaogpt/BinanceAlphaTool/internal/eventlog"
	"github.com/zhitaogpt/BinanceAlphaTool/internal/history"
	"github.com/zhitaogpt/BinanceAlphaTool/internal/tradecfg"
)

var log = logrus.WithField("module", "server")

// Server 本地控制面：启停交易循环、读取状态、改配置
type Server struct {
	ctrl    *controller.Controller
	events  *eventlog.Log
	archive *history.Archive // 可选

	httpSrv *http.Server
}

func New(ctrl *controller.Controller, events *eventlog.Log, archive *history.Archive) *Server {
	return &Server{ctrl: ctrl, events: events, archive: archive}
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := r.Group("/api")

	trader := api.Group("/trader")
	trader.POST("/start", s.handleStart)
	trader.POST("/stop", s.handleStop)
	trader.GET("/snapshot", s.handleSnapshot)
	trader.GET("/config", s.handleConfigGet)
	trader.PUT("/config", s.handleConfigUpdate)
	trader.GET("/logs", s.handleLogs)
	trader.GET("/history", s.handleHistory)

	return r
}

// Serve 监听指定地址直到 ctx 取消
func (s *Server) Serve(ctx context.Context, addr string) error {
	s.httpSrv = &http.Server{Addr: addr, Handler: s.Router()}

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpSrv.ListenAndServe() }()
	log.Infof("控制面已启动: http://%s", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleStart(c *gin.Context) {
	already := s.ctrl.IsRunning()
	s.ctrl.Start()
	c.JSON(200, gin.H{"ok": true, "already_running": already})
}

func (s *Server) handleStop(c *gin.Context) {
	already := !s.ctrl.IsRunning()
	s.ctrl.Stop()
	c.JSON(200, gin.H{"ok": true, "already_stopped": already})
}

func (s *Server) handleSnapshot(c *gin.Context) {
	c.JSON(200, s.ctrl.Snapshot())
}

func (s *Server) handleConfigGet(c *gin.Context) {
	c.JSON(200, gin.H{"config": s.ctrl.Config()})
}

func (s *Server) handleConfigUpdate(c *gin.Context) {
	var cfg tradecfg.TradeConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.ctrl.ApplyConfig(cfg); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"ok": true, "config": s.ctrl.Config()})
}

func (s *Server) handleLogs(c *gin.Context) {
	n := 100
	if raw := c.Query("n"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			n = v
		}
	}
	c.JSON(200, gin.H{"logs": s.events.Tail(n)})
}

func (s *Server) handleHistory(c *gin.Context) {
	// 内存快照始终可用；SQLite 归档在启用时提供跨进程的完整历史
	if s.archive == nil {
		c.JSON(200, gin.H{"records": s.ctrl.Snapshot().Stats.TradeHistory})
		return
	}
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	records, err := s.archive.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"records": records})
}
