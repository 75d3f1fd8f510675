package calculator

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidSchedule = errors.New("calculator: invalid schedule")

// State 蓄热装置的运行阶段
type State int

const (
	Charging State = iota
	Idle
	Discharging
)

func (s State) String() string {
	switch s {
	case Charging:
		return "charging"
	case Idle:
		return "idle"
	case Discharging:
		return "discharging"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Scheduler 充热 -> 静置 -> 放热 -> 静置 的周期
//
// 目前只用于输出，不影响求解器的边界条件和源项。
type Scheduler struct {
	d1, d2, d3, d4 float64
}

func NewScheduler(d1, d2, d3, d4 float64) (*Scheduler, error) {
	if d1 < 0 || d2 < 0 || d3 < 0 || d4 < 0 {
		return nil, fmt.Errorf("%w: negative duration (%g, %g, %g, %g)", ErrInvalidSchedule, d1, d2, d3, d4)
	}
	if d1+d2+d3+d4 <= 0 {
		return nil, fmt.Errorf("%w: cycle duration must be positive", ErrInvalidSchedule)
	}
	return &Scheduler{d1: d1, d2: d2, d3: d3, d4: d4}, nil
}

// Cycle 周期长度
func (s *Scheduler) Cycle() float64 {
	return s.d1 + s.d2 + s.d3 + s.d4
}

func (s *Scheduler) State(t float64) State {
	offset := math.Mod(t, s.Cycle())
	if offset < 0 {
		offset += s.Cycle()
	}
	switch {
	case offset < s.d1:
		return Charging
	case offset < s.d1+s.d2:
		return Idle
	case offset < s.d1+s.d2+s.d3:
		return Discharging
	default:
		return Idle
	}
}

// StateIdx 输出用的阶段编号
func (s *Scheduler) StateIdx(t float64) int {
	return stateIdx(s.State(t))
}

func stateIdx(st State) int {
	switch st {
	case Charging:
		return 1
	case Discharging:
		return 2
	case Idle:
		return 3
	default:
		panic(fmt.Sprintf("calculator: unreachable scheduler state %v", st))
	}
}
