// Package poller 实现客户端的快照轮询：固定间隔整体重新拉取，用本地快照整体替换。
package poller

import (
	"context"
	"time"
)

// Task 是一个可取消的定时任务，同一时刻只有一个 goroutine 在执行 fn。
type Task struct {
	cancel  context.CancelFunc
	trigger chan struct{}
	done    chan struct{}
}

// Start 立即执行一次 fn，之后按固定间隔执行。
// fn 出错时交给 onErr，循环照常继续，不退避也不终止。
func Start(ctx context.Context, interval time.Duration, fn func(context.Context) error, onErr func(error)) *Task {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		cancel:  cancel,
		trigger: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go t.run(ctx, interval, fn, onErr)
	return t
}

func (t *Task) run(ctx context.Context, interval time.Duration, fn func(context.Context) error, onErr func(error)) {
	defer close(t.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := fn(ctx); err != nil && ctx.Err() == nil && onErr != nil {
			onErr(err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-t.trigger:
		}
	}
}

// Trigger 请求立即额外执行一次；已有未处理的请求时合并。
func (t *Task) Trigger() {
	select {
	case t.trigger <- struct{}{}:
	default:
	}
}

// Stop 取消任务但不等待，可重复调用，也可以在 fn 内部调用。
func (t *Task) Stop() { t.cancel() }

// Wait 等待任务 goroutine 退出。
func (t *Task) Wait() { <-t.done }

// Done 在任务退出后关闭。
func (t *Task) Done() <-chan struct{} { return t.done }
