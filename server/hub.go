package server

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"heatstore/experiment"
	"heatstore/model"
)

// Hub 一个 websocket 连接：读循环把请求放进 msg，响应统一从 out 写出
type Hub struct {
	srv  *Server
	conn *websocket.Conn
	// request
	msg chan model.Msg
	// response
	out chan model.Msg

	mu     sync.Mutex
	cancel context.CancelFunc // 正在运行的计算，nil 表示空闲
	wg     sync.WaitGroup
}

func NewHub(srv *Server, conn *websocket.Conn) *Hub {
	return &Hub{
		srv:  srv,
		conn: conn,
		msg:  make(chan model.Msg, 10),
		out:  make(chan model.Msg, srv.cfg.Server.Backlog+10),
	}
}

// send ctx 结束后丢弃
func (h *Hub) send(ctx context.Context, reply model.Msg) {
	select {
	case h.out <- reply:
	case <-ctx.Done():
	}
}

func frameMsg(frame model.Frame) (model.Msg, error) {
	data, err := json.Marshal(frame)
	if err != nil {
		return model.Msg{}, err
	}
	return model.Msg{Type: model.TypeFrame, Content: string(data)}, nil
}

// replay 新连接先补收缓存的帧
func (h *Hub) replay(ctx context.Context) {
	for _, frame := range h.srv.feed.Frames() {
		reply, err := frameMsg(frame)
		if err != nil {
			log.WithError(err).Warn("encode frame")
			continue
		}
		h.send(ctx, reply)
	}
}

func (h *Hub) handleResponse(ctx context.Context) {
	for {
		select {
		case reply := <-h.out:
			if err := h.conn.WriteJSON(&reply); err != nil {
				log.WithError(err).WithField("type", reply.Type).Warn("write message")
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handleRequest(ctx context.Context) {
	for {
		select {
		case msg := <-h.msg:
			switch msg.Type {
			case model.TypeStart:
				h.start(ctx)
			case model.TypeStop:
				h.stop()
				h.send(ctx, model.Msg{Type: model.TypeStopped, Content: "stopped"})
			default:
				log.WithField("type", msg.Type).Warn("no such type")
				h.send(ctx, model.Msg{Type: model.TypeError, Content: "no such type: " + msg.Type})
			}
		case <-ctx.Done():
			h.stop()
			return
		}
	}
}

// start 每个连接同时只运行一个计算，结果只推送不写文件
func (h *Hub) start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.send(ctx, model.Msg{Type: model.TypeError, Content: "already running"})
		return
	}

	cfg := *h.srv.cfg
	cfg.Output.NoOutput = true
	cfg.MMS.Enabled = false
	e, err := experiment.New(ctx, &cfg, nil, h.srv.metrics)
	if err != nil {
		h.send(ctx, model.Msg{Type: model.TypeError, Content: err.Error()})
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	e.OnFrame = func(frame model.Frame) {
		h.srv.feed.Push(frame)
		reply, err := frameMsg(frame)
		if err != nil {
			log.WithError(err).Warn("encode frame")
			return
		}
		h.send(runCtx, reply)
	}

	h.send(ctx, model.Msg{Type: model.TypeStarted, Content: strconv.Itoa(e.NumSteps())})
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		err := e.Run(runCtx)
		h.mu.Lock()
		h.cancel = nil
		h.mu.Unlock()
		cancel()
		switch {
		case err == nil:
			h.send(ctx, model.Msg{Type: model.TypeFinished, Content: strconv.Itoa(e.Steps())})
		case errors.Is(err, context.Canceled):
			log.WithField("n", e.Steps()).Info("live run stopped")
		default:
			log.WithError(err).Error("live run failed")
			h.send(ctx, model.Msg{Type: model.TypeError, Content: err.Error()})
		}
	}()
}

func (h *Hub) stop() {
	h.mu.Lock()
	cancel := h.cancel
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	h.wg.Wait()
}
