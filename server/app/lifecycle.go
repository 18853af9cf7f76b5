// Package app 管理長期運行元件的最小生命週期抽象。
package app

import "context"

// Component 任何可啟動 / 可關閉的長生命週期元件。
//   - Run() 阻塞直到元件停止。
//   - Shutdown(ctx) 要求優雅關閉，需尊重 ctx 期限。
type Component interface {
	Run() error
	Shutdown(ctx context.Context) error
}

// Closer 把只需關閉、不需執行的資源（例如求解執行期）包成 Component。
// Run 阻塞到 Shutdown 被呼叫。
type Closer struct {
	fn   func()
	done chan struct{}
}

func NewCloser(fn func()) *Closer {
	return &Closer{fn: fn, done: make(chan struct{})}
}

func (c *Closer) Run() error {
	<-c.done
	return nil
}

func (c *Closer) Shutdown(context.Context) error {
	select {
	case <-c.done:
		return nil
	default:
	}
	if c.fn != nil {
		c.fn()
	}
	close(c.done)
	return nil
}
