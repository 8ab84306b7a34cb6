package stats

import (
	"fmt"
	"sync"
	"time"
)

// TradeRecord 单次完整循环的成交记录，创建后不可变
type TradeRecord struct {
	Time        time.Time `json:"time"`
	BuyAmount   float64   `json:"buyAmount"`
	SellAmount  float64   `json:"sellAmount"`
	ProfitLoss  float64   `json:"profitLoss"`
	CycleNumber int       `json:"cycleNumber"`
}

// Snapshot 统计数据的只读副本（控制面消费）
type Snapshot struct {
	CurrentBalance       float64       `json:"currentBalance"`
	TotalVolume          float64       `json:"totalVolume"`
	CyclesCompleted      int           `json:"cyclesCompleted"`
	TotalProfit          float64       `json:"totalProfit"`
	StartTime            time.Time     `json:"startTime"`
	LastUpdated          time.Time     `json:"lastUpdated"`
	TradeHistory         []TradeRecord `json:"tradeHistory"`
	RunningTime          time.Duration `json:"-"`
	RunningTimeFormatted string        `json:"runningTimeFormatted"`
}

// ProfitNonNegative 盈亏符号（面板显示红绿用）
func (s Snapshot) ProfitNonNegative() bool {
	return s.TotalProfit >= 0
}

// Tracker 运行统计聚合。
// 写入方只有交易循环（单写者），锁只为并发快照读取存在。
// 约束：CyclesCompleted == len(history)，TotalVolume == Σ history[i].BuyAmount。
type Tracker struct {
	mu sync.RWMutex

	currentBalance  float64
	totalVolume     float64
	cyclesCompleted int
	totalProfit     float64
	startTime       time.Time
	lastUpdated     time.Time
	history         []TradeRecord

	running     bool
	lastElapsed time.Duration

	now func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// SetClock 注入时钟（测试用）
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// SetBalance 更新当前余额（循环第一步）
func (t *Tracker) SetBalance(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentBalance = v
}

// Balance 读取当前余额
func (t *Tracker) Balance() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.currentBalance
}

// NextCycleNumber 下一个循环编号 = 已完成数 + 1
func (t *Tracker) NextCycleNumber() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cyclesCompleted + 1
}

// TotalVolume 累计买入量
func (t *Tracker) TotalVolume() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalVolume
}

// CyclesCompleted 已完成循环数
func (t *Tracker) CyclesCompleted() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cyclesCompleted
}

// RecordCycle 记录一次成功循环：追加历史并同步更新累计值。
// 这是历史和累计值唯一的写入口，保证两者不会脱节。
func (t *Tracker) RecordCycle(rec TradeRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = append(t.history, rec)
	t.totalVolume += rec.BuyAmount
	t.totalProfit += rec.ProfitLoss
	t.cyclesCompleted++
	t.lastUpdated = t.now()
}

// LastRecord 最近一条成交记录，历史为空时 ok 为 false
func (t *Tracker) LastRecord() (TradeRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.history) == 0 {
		return TradeRecord{}, false
	}
	return t.history[len(t.history)-1], true
}

// MarkStarted 标记一轮运行开始（重置 startTime，累计值保留）
func (t *Tracker) MarkStarted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = true
	t.startTime = t.now()
}

// MarkStopped 标记运行结束，固化本轮运行时长
func (t *Tracker) MarkStopped() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running && !t.startTime.IsZero() {
		t.lastElapsed = t.now().Sub(t.startTime)
	}
	t.running = false
}

// RunningTime 运行中返回 now-startTime，停止后返回最后一次记录的时长
func (t *Tracker) RunningTime() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.runningTimeLocked()
}

func (t *Tracker) runningTimeLocked() time.Duration {
	if t.running && !t.startTime.IsZero() {
		return t.now().Sub(t.startTime)
	}
	return t.lastElapsed
}

// FormatDuration 格式化为 HH:MM:SS
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// Snapshot 导出只读副本
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	history := make([]TradeRecord, len(t.history))
	copy(history, t.history)

	rt := t.runningTimeLocked()
	return Snapshot{
		CurrentBalance:       t.currentBalance,
		TotalVolume:          t.totalVolume,
		CyclesCompleted:      t.cyclesCompleted,
		TotalProfit:          t.totalProfit,
		StartTime:            t.startTime,
		LastUpdated:          t.lastUpdated,
		TradeHistory:         history,
		RunningTime:          rt,
		RunningTimeFormatted: FormatDuration(rt),
	}
}
