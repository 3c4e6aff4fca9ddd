package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// ErrListenerRunning 监听器已启动.
var ErrListenerRunning = errors.New("listener already running")

// listenerCloseTimeout 等待处理中消息完成的最长时间.
const listenerCloseTimeout = 10 * time.Second

// Listener 基于 watermill Router 的事件监听器，生命周期由 Start/Stop 显式控制.
type Listener struct {
	router *message.Router
	sub    message.Subscriber

	mu      sync.Mutex
	started bool
	done    chan struct{}
	runErr  error
}

// NewListener 创建监听器，处理函数需要在 Start 前通过 Handle 注册.
func NewListener(sub message.Subscriber, logger watermill.LoggerAdapter) (*Listener, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: listenerCloseTimeout}, logger)
	if err != nil {
		return nil, err
	}

	router.AddMiddleware(middleware.Recoverer)

	return &Listener{router: router, sub: sub, done: make(chan struct{})}, nil
}

// Handle 注册主题处理函数，name 在监听器内必须唯一.
func (l *Listener) Handle(name, topic string, fn func(msg *message.Message) error) {
	l.router.AddNoPublisherHandler(name, topic, l.sub, fn)
}

// Start 在后台运行 Router，等到 Router 就绪或 ctx 结束后返回.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return ErrListenerRunning
	}

	l.started = true
	l.mu.Unlock()

	go func() {
		defer close(l.done)

		if err := l.router.Run(context.WithoutCancel(ctx)); err != nil {
			l.mu.Lock()
			l.runErr = err
			l.mu.Unlock()
		}
	}()

	select {
	case <-l.router.Running():
		return nil
	case <-l.done:
		l.mu.Lock()
		defer l.mu.Unlock()

		return l.runErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running 在 Router 开始处理消息后关闭.
func (l *Listener) Running() <-chan struct{} {
	return l.router.Running()
}

// Stop 关闭 Router 并等待处理中的消息完成.
func (l *Listener) Stop() error {
	l.mu.Lock()
	started := l.started
	l.mu.Unlock()

	err := l.router.Close()

	if started {
		<-l.done
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return errors.Join(err, l.runErr)
}
