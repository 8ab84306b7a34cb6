package eventlog

import (
	"strings"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	at := time.Date(2026, 8, 1, 9, 30, 5, 0, time.UTC)
	return func() time.Time { return at }
}

// TestMarkers 四种级别对应四种前缀标记
func TestMarkers(t *testing.T) {
	l := New()
	l.now = fixedClock()

	l.Infof("普通信息")
	l.Successf("成功事件")
	l.Warnf("警告")
	l.Errorf("错误")

	entries := l.Snapshot()
	if len(entries) != 4 {
		t.Fatalf("应该有 4 条日志，实际 %d 条", len(entries))
	}

	wants := []string{
		"[09:30:05] ℹ️ 普通信息",
		"[09:30:05] ✅ 成功事件",
		"[09:30:05] ⚠️ 警告",
		"[09:30:05] ❌ 错误",
	}
	for i, want := range wants {
		if entries[i] != want {
			t.Errorf("第 %d 条应该为 %q，实际为 %q", i, want, entries[i])
		}
	}
}

// TestAppendOnlyOrder 条目按时间顺序追加，不会被后续写入打乱
func TestAppendOnlyOrder(t *testing.T) {
	l := New()
	for i := 0; i < 10; i++ {
		l.Infof("条目 %d", i)
	}

	entries := l.Snapshot()
	for i, e := range entries {
		if !strings.HasSuffix(e, "条目 "+string(rune('0'+i))) {
			t.Errorf("第 %d 条顺序错误: %q", i, e)
		}
	}
	if l.Len() != 10 {
		t.Errorf("Len 应该为 10，实际为 %d", l.Len())
	}
}

// TestTail 取最近 n 条
func TestTail(t *testing.T) {
	l := New()
	l.Infof("第一条")
	l.Infof("第二条")
	l.Infof("第三条")

	tail := l.Tail(2)
	if len(tail) != 2 {
		t.Fatalf("Tail(2) 应该返回 2 条，实际 %d 条", len(tail))
	}
	if !strings.HasSuffix(tail[0], "第二条") || !strings.HasSuffix(tail[1], "第三条") {
		t.Errorf("Tail(2) 返回内容错误: %v", tail)
	}

	// n 超过总数时返回全部
	if got := l.Tail(100); len(got) != 3 {
		t.Errorf("Tail(100) 应该返回全部 3 条，实际 %d 条", len(got))
	}
	// n <= 0 时返回全部
	if got := l.Tail(0); len(got) != 3 {
		t.Errorf("Tail(0) 应该返回全部 3 条，实际 %d 条", len(got))
	}
}

// TestSnapshotIsCopy 快照是副本，修改不影响内部
func TestSnapshotIsCopy(t *testing.T) {
	l := New()
	l.Infof("原始")

	snap := l.Snapshot()
	snap[0] = "篡改"

	if got := l.Snapshot()[0]; strings.Contains(got, "篡改") {
		t.Errorf("快照修改泄漏到内部: %q", got)
	}
}
