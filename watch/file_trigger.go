// FileTrigger 监听文件变化并通知使用者，不读取文件内容
// 使用者收到通知后自己重新加载数据

package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hatlonely/sqlconv/log"
	"github.com/pkg/errors"
)

// Listener 文件变化时被调用，同一个 FileTrigger 上的调用是串行的
type Listener func(ctx context.Context) error

type FileTriggerOptions struct {
	// FilePath 监听的文件
	FilePath string `cfg:"filePath" validate:"required"`

	// Delay 合并连续变化的等待时间，一次写入通常产生多个事件；为 0 时每个事件都通知
	Delay time.Duration `cfg:"delay" def:"200ms"`

	Logger log.Logger `cfg:"-"`
}

type FileTrigger struct {
	filePath string
	delay    time.Duration

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup

	logger log.Logger
}

func NewFileTriggerWithOptions(options *FileTriggerOptions) (*FileTrigger, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if options.FilePath == "" {
		return nil, errors.New("file path is required")
	}

	l := options.Logger
	if l == nil {
		l = log.Default()
	}

	return &FileTrigger{
		filePath: filepath.Clean(options.FilePath),
		delay:    options.Delay,
		done:     make(chan struct{}),
		logger:   l.WithGroup("fileTrigger").With("filePath", options.FilePath),
	}, nil
}

// OnChange 立即调用一次 listener，之后在文件被写入、创建或重命名时再次调用
// 首次调用失败时返回错误且不再监听；之后的失败只记录日志
func (t *FileTrigger) OnChange(ctx context.Context, listener Listener) error {
	if err := listener(ctx); err != nil {
		return errors.WithMessage(err, "listener failed")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "fsnotify.NewWatcher failed")
	}

	// 监听目录而不是文件，文件被替换后仍能收到事件
	if err := watcher.Add(filepath.Dir(t.filePath)); err != nil {
		watcher.Close()
		return errors.Wrap(err, "watcher.Add failed")
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer watcher.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if filepath.Clean(event.Name) != t.filePath {
					continue
				}

				t.logger.Debug("file changed", "op", event.Op.String())
				if t.delay <= 0 {
					t.notify(ctx, listener)
					continue
				}
				if timer == nil {
					timer = time.NewTimer(t.delay)
				} else {
					timer.Reset(t.delay)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				t.notify(ctx, listener)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				t.logger.Warn("watcher error", "error", err)
			case <-ctx.Done():
				return
			case <-t.done:
				return
			}
		}
	}()

	return nil
}

func (t *FileTrigger) notify(ctx context.Context, listener Listener) {
	if err := listener(ctx); err != nil {
		t.logger.Warn("listener failed", "error", err)
	}
}

// Close 停止监听并等待正在执行的 listener 返回，可重复调用
func (t *FileTrigger) Close() error {
	t.once.Do(func() {
		close(t.done)
	})
	t.wg.Wait()
	return nil
}
