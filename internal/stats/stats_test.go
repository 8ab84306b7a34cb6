package stats

import (
	"testing"
	"time"
)

// TestRecordCycleInvariants 历史条数、累计量、累计盈亏必须和逐笔记录一致
func TestRecordCycleInvariants(t *testing.T) {
	tracker := NewTracker()

	records := []TradeRecord{
		{BuyAmount: 15, SellAmount: 14.9, ProfitLoss: -0.1, CycleNumber: 1},
		{BuyAmount: 20, SellAmount: 20.5, ProfitLoss: 0.5, CycleNumber: 2},
		{BuyAmount: 12, SellAmount: 12, ProfitLoss: 0, CycleNumber: 3},
	}
	for _, rec := range records {
		rec.Time = time.Now()
		tracker.RecordCycle(rec)
	}

	snap := tracker.Snapshot()
	if snap.CyclesCompleted != len(records) {
		t.Errorf("CyclesCompleted 应该为 %d，实际为 %d", len(records), snap.CyclesCompleted)
	}
	if len(snap.TradeHistory) != snap.CyclesCompleted {
		t.Errorf("历史条数 %d 和已完成循环数 %d 不一致", len(snap.TradeHistory), snap.CyclesCompleted)
	}

	var wantVolume, wantProfit float64
	for _, rec := range records {
		wantVolume += rec.BuyAmount
		wantProfit += rec.ProfitLoss
	}
	if snap.TotalVolume != wantVolume {
		t.Errorf("TotalVolume 应该为 %.4f，实际为 %.4f", wantVolume, snap.TotalVolume)
	}
	if snap.TotalProfit != wantProfit {
		t.Errorf("TotalProfit 应该为 %.4f，实际为 %.4f", wantProfit, snap.TotalProfit)
	}
}

// TestNextCycleNumber 循环编号 = 已完成数 + 1
func TestNextCycleNumber(t *testing.T) {
	tracker := NewTracker()
	if got := tracker.NextCycleNumber(); got != 1 {
		t.Errorf("初始循环编号应该为 1，实际为 %d", got)
	}

	tracker.RecordCycle(TradeRecord{BuyAmount: 10, CycleNumber: 1})
	if got := tracker.NextCycleNumber(); got != 2 {
		t.Errorf("一轮之后循环编号应该为 2，实际为 %d", got)
	}
}

// TestLastRecord 读取最近一条成交记录
func TestLastRecord(t *testing.T) {
	tracker := NewTracker()
	if _, ok := tracker.LastRecord(); ok {
		t.Error("空历史不应该返回记录")
	}

	tracker.RecordCycle(TradeRecord{BuyAmount: 10, CycleNumber: 1})
	tracker.RecordCycle(TradeRecord{BuyAmount: 33, CycleNumber: 2})

	rec, ok := tracker.LastRecord()
	if !ok || rec.CycleNumber != 2 || rec.BuyAmount != 33 {
		t.Errorf("应该返回第 2 轮记录，实际为 %+v (ok=%v)", rec, ok)
	}
}

// TestSnapshotIsCopy 快照修改不能影响内部状态
func TestSnapshotIsCopy(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordCycle(TradeRecord{BuyAmount: 10, CycleNumber: 1})

	snap := tracker.Snapshot()
	snap.TradeHistory[0].BuyAmount = 999

	if rec, _ := tracker.LastRecord(); rec.BuyAmount != 10 {
		t.Errorf("快照修改泄漏到内部状态: %.2f", rec.BuyAmount)
	}
}

// TestRunningTime 运行中随时钟增长，停止后固化
func TestRunningTime(t *testing.T) {
	tracker := NewTracker()

	current := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	tracker.SetClock(func() time.Time { return current })

	tracker.MarkStarted()
	current = current.Add(90 * time.Second)
	if got := tracker.RunningTime(); got != 90*time.Second {
		t.Errorf("运行时长应该为 90s，实际为 %v", got)
	}

	tracker.MarkStopped()
	current = current.Add(time.Hour)
	if got := tracker.RunningTime(); got != 90*time.Second {
		t.Errorf("停止后运行时长应该固化在 90s，实际为 %v", got)
	}

	// 重新启动重置 startTime
	tracker.MarkStarted()
	current = current.Add(5 * time.Second)
	if got := tracker.RunningTime(); got != 5*time.Second {
		t.Errorf("重新启动后运行时长应该从零计，实际为 %v", got)
	}
}

// TestFormatDuration HH:MM:SS 格式
func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{61 * time.Minute, "01:01:00"},
		{25*time.Hour + 3*time.Minute + 7*time.Second, "25:03:07"},
		{-time.Second, "00:00:00"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.d); got != c.want {
			t.Errorf("FormatDuration(%v) 应该为 %s，实际为 %s", c.d, c.want, got)
		}
	}
}

// TestProfitNonNegative 盈亏符号判断
func TestProfitNonNegative(t *testing.T) {
	if !(Snapshot{TotalProfit: 0}).ProfitNonNegative() {
		t.Error("零盈亏应该算非负")
	}
	if (Snapshot{TotalProfit: -0.01}).ProfitNonNegative() {
		t.Error("亏损不应该算非负")
	}
}
