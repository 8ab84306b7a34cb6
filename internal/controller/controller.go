package controller

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zhitaogpt/BinanceAlphaTool/internal/eventlog"
	"github.com/zhitaogpt/BinanceAlphaTool/internal/history"
	"github.com/zhitaogpt/BinanceAlphaTool/internal/stats"
	"github.com/zhitaogpt/BinanceAlphaTool/internal/tradecfg"
	"github.com/zhitaogpt/BinanceAlphaTool/pkg/sigchan"
)

var log = logrus.WithField("module", "controller")

// RunState 运行状态
type RunState int

const (
	StateIdle RunState = iota
	StateRunning
	StateStopped
)

func (s RunState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// CycleRunner 单轮循环执行器（engine.Engine 实现）
type CycleRunner interface {
	RunCycle(ctx context.Context, cfg tradecfg.TradeConfig) bool
}

// Snapshot 对外暴露的只读状态（控制面消费的纯数据）
type Snapshot struct {
	Config               tradecfg.TradeConfig `json:"config"`
	Stats                stats.Snapshot       `json:"stats"`
	Logs                 []string             `json:"logs"`
	IsRunning            bool                 `json:"isRunning"`
	State                string               `json:"state"`
	RunningTimeFormatted string               `json:"runningTimeFormatted"`
}

// Controller 生命周期状态机，驱动循环引擎直到停止条件。
// 显式构造、显式注入，不做进程级单例。
// 同一时刻只有一个驱动循环：上一轮循环完整结束前绝不会开始下一轮，
// 否则余额检查和交易量统计会基于仍在变化的快照（正确性约束）。
type Controller struct {
	engine   CycleRunner
	cfgStore *tradecfg.Store
	stats    *stats.Tracker
	events   *eventlog.Log
	archive  *history.Archive // 可选，nil 表示不归档

	mu      sync.Mutex
	state   RunState
	cfg     tradecfg.TradeConfig
	cancel  context.CancelFunc
	done    chan struct{}
	stopReq bool

	stopSig *sigchan.Chan
}

// Option 可选依赖
type Option func(*Controller)

// WithArchive 启用成交记录归档
func WithArchive(a *history.Archive) Option {
	return func(c *Controller) { c.archive = a }
}

// New 创建控制器。初始配置从存储加载（缺失时为内置默认值）。
func New(engine CycleRunner, cfgStore *tradecfg.Store, tracker *stats.Tracker, events *eventlog.Log, opts ...Option) *Controller {
	c := &Controller{
		engine:   engine,
		cfgStore: cfgStore,
		stats:    tracker,
		events:   events,
		state:    StateIdle,
		stopSig:  sigchan.New(1),
	}
	c.cfg = cfgStore.Load()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config 当前配置快照
func (c *Controller) Config() tradecfg.TradeConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// ApplyConfig 整体替换配置并显式持久化。
// 运行中的循环不受影响，新配置从下一轮循环开始生效。
func (c *Controller) ApplyConfig(cfg tradecfg.TradeConfig) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()

	if err := c.cfgStore.Save(cfg); err != nil {
		c.events.Warnf("配置保存失败: %v", err)
		return err
	}
	c.events.Infof("配置已更新: %s -> %s, 单笔 [%.2f, %.2f], 目标量 %.2f",
		cfg.FromToken, cfg.ToToken, cfg.MinAmount, cfg.MaxAmount, cfg.TargetVolume)
	return nil
}

// State 当前运行状态
func (c *Controller) State() RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsRunning 是否正在运行
func (c *Controller) IsRunning() bool {
	return c.State() == StateRunning
}

// Start 启动驱动循环。已在运行时为空操作（不会出现第二个循环）。
func (c *Controller) Start() {
	c.mu.Lock()
	if c.state == StateRunning {
		c.mu.Unlock()
		log.Warnf("交易已在运行中，忽略重复启动")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.stopReq = false
	// 上一次 Stop 的信号可能没被任何挂起点消费掉，重启必须换新的信号通道
	c.stopSig = sigchan.New(1)
	c.state = StateRunning
	c.mu.Unlock()

	// 只在真正的 启动/重启 转换上重置 startTime；累计计数保留
	c.stats.MarkStarted()
	c.events.Infof("交易循环启动")

	go c.driveLoop(ctx)
}

// Stop 请求停止。空闲/已停止时为幂等空操作。
// 停止请求在一个延时周期内生效：两个挂起点都会立即观察到。
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return
	}
	c.stopReq = true
	cancel := c.cancel
	sig := c.stopSig
	c.mu.Unlock()

	sig.Emit()
	if cancel != nil {
		cancel()
	}
}

// Done 返回当前运行结束时关闭的 channel；从未启动时返回已关闭的 channel
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.done
}

func (c *Controller) stopRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopReq
}

// driveLoop 驱动循环：每轮以当时的配置快照执行，失败先退避再等常规间隔。
func (c *Controller) driveLoop(ctx context.Context) {
	defer c.finish()

	for {
		if c.stopRequested() || ctx.Err() != nil {
			return
		}

		cfg := c.Config()

		if cfg.TargetVolume > 0 && c.stats.TotalVolume() >= cfg.TargetVolume {
			c.events.Successf("累计交易量 %.4f 已达目标 %.4f，自动停止",
				c.stats.TotalVolume(), cfg.TargetVolume)
			return
		}
		if cfg.MaxCycles > 0 && c.stats.CyclesCompleted() >= cfg.MaxCycles {
			c.events.Infof("已达循环次数上限 %d，自动停止", cfg.MaxCycles)
			return
		}

		ok := c.engine.RunCycle(ctx, cfg)
		if ok {
			c.archiveLastRecord()
		} else {
			c.events.Warnf("本轮循环失败，退避 %.0f 秒后重试", cfg.RetryDelaySec)
			if !c.wait(ctx, secs(cfg.RetryDelaySec)) {
				return
			}
		}

		// 成功失败都要等常规间隔再进入下一轮
		if !c.wait(ctx, secs(cfg.CycleIntervalSec)) {
			return
		}
	}
}

// wait 可中断挂起；唤醒后立即复查停止标记，而不是等到下一次循环顶部
func (c *Controller) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return !c.stopRequested() && ctx.Err() == nil
	}
	c.mu.Lock()
	sig := c.stopSig
	c.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-sig.C():
		return false
	case <-timer.C:
	}
	return !c.stopRequested() && ctx.Err() == nil
}

func secs(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// archiveLastRecord 把刚完成的循环写入 SQLite 归档；失败只告警
func (c *Controller) archiveLastRecord() {
	if c.archive == nil {
		return
	}
	rec, ok := c.stats.LastRecord()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.archive.Append(ctx, rec); err != nil {
		c.events.Warnf("成交记录归档失败: %v", err)
	}
}

func (c *Controller) finish() {
	c.mu.Lock()
	c.state = StateStopped
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	done := c.done
	c.mu.Unlock()

	c.stats.MarkStopped()
	c.events.Infof("交易循环已停止")
	if done != nil {
		close(done)
	}
}

// RunOnce 同步执行单次循环（命令行 -once 模式）。
// 执行期间同样占用运行状态，和 Start 的驱动循环互斥。
func (c *Controller) RunOnce(ctx context.Context) bool {
	c.mu.Lock()
	if c.state == StateRunning {
		c.mu.Unlock()
		log.Warnf("交易循环运行中，忽略单次执行请求")
		return false
	}
	c.state = StateRunning
	c.mu.Unlock()

	c.stats.MarkStarted()
	ok := c.engine.RunCycle(ctx, c.Config())
	if ok {
		c.archiveLastRecord()
	}
	c.stats.MarkStopped()

	c.mu.Lock()
	c.state = StateStopped
	c.mu.Unlock()
	return ok
}

// Snapshot 导出控制面需要的全部只读状态
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	cfg := c.cfg
	state := c.state
	c.mu.Unlock()

	st := c.stats.Snapshot()
	return Snapshot{
		Config:               cfg,
		Stats:                st,
		Logs:                 c.events.Snapshot(),
		IsRunning:            state == StateRunning,
		State:                state.String(),
		RunningTimeFormatted: st.RunningTimeFormatted,
	}
}
