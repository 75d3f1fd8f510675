package model

// 前后端通信消息结构
type Msg struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// 消息类型
const (
	// 请求
	TypeStart = "start"
	TypeStop  = "stop"

	// 响应
	TypeStarted  = "started"
	TypeStopped  = "stopped"
	TypeFrame    = "frame"
	TypeFinished = "finished"
	TypeError    = "error"
)

// Frame 某一时刻流体和固体温度分布的快照，推送给前端
type Frame struct {
	Index  int       `json:"index"`
	Time   float64   `json:"t"`
	Step   int       `json:"n"`
	Status int       `json:"status"` // 调度阶段，未启用调度时为 0
	X      []float64 `json:"x"`
	Tf     []float64 `json:"tf"`
	Ts     []float64 `json:"ts"`
}
