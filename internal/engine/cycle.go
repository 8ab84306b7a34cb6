package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/zhitaogpt/BinanceAlphaTool/internal/eventlog"
	"github.com/zhitaogpt/BinanceAlphaTool/internal/market"
	"github.com/zhitaogpt/BinanceAlphaTool/internal/stats"
	"github.com/zhitaogpt/BinanceAlphaTool/internal/tradecfg"
)

var log = logrus.WithField("module", "engine")

// Exchange 循环引擎依赖的四个远程操作（market.Client 实现）
type Exchange interface {
	GetQuote(ctx context.Context, req market.QuoteRequest) *market.Quote
	Buy(ctx context.Context, q *market.Quote) market.ExecResult
	Sell(ctx context.Context, q *market.Quote) market.ExecResult
	GetBalance(ctx context.Context, asset string) float64
	OrderStatus(ctx context.Context, traceID string) *market.OrderStatus
}

// Engine 执行单次「买入→卖出」循环。
// 每一步失败都导致整个循环作废；买入成功但卖出失败不回滚，
// 亏损计入下一轮循环开始时的余额（已知风险，保持原行为）。
type Engine struct {
	exchange Exchange
	stats    *stats.Tracker
	events   *eventlog.Log

	rng *rand.Rand
	now func() time.Time
}

func New(exchange Exchange, tracker *stats.Tracker, events *eventlog.Log) *Engine {
	return &Engine{
		exchange: exchange,
		stats:    tracker,
		events:   events,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
}

// SetRand 注入随机源（测试用）
func (e *Engine) SetRand(rng *rand.Rand) { e.rng = rng }

// SetClock 注入时钟（测试用）
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// drawAmount 在 [MinAmount, MaxAmount] 内均匀抽取本轮买入金额
func (e *Engine) drawAmount(cfg tradecfg.TradeConfig) float64 {
	if cfg.MaxAmount <= cfg.MinAmount {
		return cfg.MinAmount
	}
	return cfg.MinAmount + e.rng.Float64()*(cfg.MaxAmount-cfg.MinAmount)
}

// RunCycle 执行一次完整循环，返回是否成功。不抛错。
// 配置在进入时已由调用方快照，循环中途的外部修改不影响本轮。
func (e *Engine) RunCycle(ctx context.Context, cfg tradecfg.TradeConfig) bool {
	// 1-2. 余额检查
	balance := e.exchange.GetBalance(ctx, cfg.FromToken)
	e.stats.SetBalance(balance)
	if balance < cfg.MinBalanceRequired {
		e.events.Warnf("余额不足: %.4f %s < %.4f，跳过本轮", balance, cfg.FromToken, cfg.MinBalanceRequired)
		return false
	}

	// 3. 抽取本轮买入金额
	amount := e.drawAmount(cfg)
	cycleNumber := e.stats.NextCycleNumber()
	e.events.Infof("开始第 %d 轮: 买入 %.4f %s -> %s", cycleNumber, amount, cfg.FromToken, cfg.ToToken)

	// 4. 买入报价
	buyQuote := e.exchange.GetQuote(ctx, market.QuoteRequest{
		Direction:       market.DirectionBuy,
		FromToken:       cfg.FromToken,
		ToToken:         cfg.ToToken,
		FromChainID:     cfg.FromChainID,
		ToChainID:       cfg.ToChainID,
		ContractAddress: cfg.ContractAddress,
		Amount:          market.FormatAmount(amount),
		Slippage:        cfg.CustomSlippage,
	})
	if buyQuote == nil {
		return false
	}

	// 5. 执行买入
	buyRes := e.exchange.Buy(ctx, buyQuote)
	if !buyRes.OK {
		return false
	}
	if !e.confirmFill(ctx, cfg, buyRes.TraceID, "买入") {
		return false
	}
	acquired := buyRes.Amount
	if acquired <= 0 {
		e.events.Errorf("无法确定买入获得的 %s 数量，放弃本轮", cfg.ToToken)
		return false
	}

	// 6. 卖出报价：把买到的全部数量换回计价币
	sellQuote := e.exchange.GetQuote(ctx, market.QuoteRequest{
		Direction:       market.DirectionSell,
		FromToken:       cfg.ToToken,
		ToToken:         cfg.FromToken,
		FromChainID:     cfg.ToChainID,
		ToChainID:       cfg.FromChainID,
		ContractAddress: cfg.ContractAddress,
		Amount:          market.FormatAmount(acquired),
		Slippage:        cfg.CustomSlippage,
	})
	if sellQuote == nil {
		return false
	}

	// 7. 执行卖出
	sellRes := e.exchange.Sell(ctx, sellQuote)
	if !sellRes.OK {
		return false
	}
	if !e.confirmFill(ctx, cfg, sellRes.TraceID, "卖出") {
		return false
	}
	proceeds := sellRes.Amount

	// 8. 结算并记账（盈亏用 Decimal 计算，避免浮点误差累积）
	amountDec := decimal.NewFromFloat(amount)
	proceedsDec := decimal.NewFromFloat(proceeds)
	profitDec := proceedsDec.Sub(amountDec)
	profit := profitDec.InexactFloat64()

	e.stats.RecordCycle(stats.TradeRecord{
		Time:        e.now(),
		BuyAmount:   amount,
		SellAmount:  proceeds,
		ProfitLoss:  profit,
		CycleNumber: cycleNumber,
	})

	// MaxLossRate 只做超损告警，不中断循环
	if profit < 0 && cfg.MaxLossRate > 0 && amount > 0 {
		lossRate := profitDec.Neg().Div(amountDec)
		if lossRate.InexactFloat64() > cfg.MaxLossRate {
			e.events.Warnf("第 %d 轮亏损率 %.4f%% 超过上限 %.4f%%",
				cycleNumber, lossRate.InexactFloat64()*100, cfg.MaxLossRate*100)
		}
	}

	// 9. 完成
	e.events.Successf("第 %d 轮完成: 买入 %.4f %s，卖出回收 %.4f %s，盈亏 %.6f",
		cycleNumber, amount, cfg.FromToken, proceeds, cfg.FromToken, profit)
	return true
}

// confirmFill 轮询订单状态直到终态或超时。
// FillTimeoutSec 为 0（默认）或订单没有 trace id 时直接信任下单响应。
func (e *Engine) confirmFill(ctx context.Context, cfg tradecfg.TradeConfig, traceID, side string) bool {
	if cfg.FillTimeoutSec <= 0 {
		return true
	}
	if traceID == "" {
		log.Debugf("%s订单没有 trace id，跳过成交确认", side)
		return true
	}

	interval := time.Duration(cfg.FillPollIntervalSec * float64(time.Second))
	if interval <= 0 {
		interval = 10 * time.Second
	}
	deadline := e.now().Add(time.Duration(cfg.FillTimeoutSec * float64(time.Second)))

	for e.now().Before(deadline) {
		status := e.exchange.OrderStatus(ctx, traceID)
		if status != nil {
			if status.Filled() {
				log.Debugf("%s订单 %s 已成交", side, traceID)
				return true
			}
			if status.Failed() {
				e.events.Errorf("%s订单 %s 进入失败终态", side, traceID)
				return false
			}
			log.Debugf("%s订单 %s 仍在等待成交", side, traceID)
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}

	e.events.Errorf("等待%s订单 %s 成交超时", side, traceID)
	return false
}
