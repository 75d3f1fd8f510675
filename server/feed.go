package server

import (
	"sync"

	"heatstore/deque"
	"heatstore/model"
)

// Feed 最近推送的帧，供新连接补收和 /chart 绘图
type Feed struct {
	mu      sync.Mutex
	backlog *deque.ArrDeque[model.Frame]
}

func NewFeed(backlog int) *Feed {
	return &Feed{backlog: deque.NewArrDeque[model.Frame](backlog)}
}

// Push 缓存满时丢弃最旧的帧
func (f *Feed) Push(frame model.Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backlog.Push(frame)
}

// Frames 按时间顺序复制缓存中的帧
func (f *Feed) Frames() []model.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make([]model.Frame, 0, f.backlog.Size())
	f.backlog.Traverse(func(_ int, item model.Frame) {
		res = append(res, item)
	})
	return res
}

// Latest 最新的一帧
func (f *Feed) Latest() (model.Frame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.backlog.IsEmpty() {
		return model.Frame{}, false
	}
	return f.backlog.Get(f.backlog.Size() - 1), true
}
