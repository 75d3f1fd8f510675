// Package server 通过 websocket 实时推送计算过程中的温度分布
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"heatstore/config"
	"heatstore/experiment"
	"heatstore/model"
)

type Server struct {
	addr     string
	upgrader websocket.Upgrader
	cfg      *config.Config

	feed     *Feed
	registry *prometheus.Registry
	metrics  *experiment.Metrics
}

func NewServer(cfg *config.Config, upgrader websocket.Upgrader) *Server {
	registry := prometheus.NewRegistry()
	return &Server{
		addr:     cfg.Server.Addr,
		upgrader: upgrader,
		cfg:      cfg,
		feed:     NewFeed(cfg.Server.Backlog),
		registry: registry,
		metrics:  experiment.NewMetrics(registry),
	}
}

func (s *Server) Feed() *Feed { return s.feed }

// serveWs handles websocket requests from the peer.
func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("upgrade")
		return
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	entry := log.WithField("remote", conn.RemoteAddr().String())
	entry.Info("client connected")

	hub := NewHub(s, conn)
	go hub.handleResponse(ctx)
	hub.replay(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.handleRequest(ctx)
	}()

	for {
		var msg model.Msg
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				entry.WithError(err).Warn("read message")
			}
			break
		}
		select {
		case hub.msg <- msg:
		case <-ctx.Done():
		}
	}
	cancel()
	<-done
	entry.Info("client disconnected")
}

func (s *Server) serveChart(w http.ResponseWriter, _ *http.Request) {
	frame, ok := s.feed.Latest()
	if !ok {
		http.Error(w, "no frame yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderChart(w, s.cfg.Experiment.Title, frame); err != nil {
		log.WithError(err).Warn("render chart")
	}
}

// Handler /ws 实时推送，/metrics 监控指标，/chart 最新一帧的温度分布
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWs)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/chart", s.serveChart)
	return mux
}

// Serve 阻塞到 ctx 结束或监听失败
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", s.addr).Info("listening")
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
