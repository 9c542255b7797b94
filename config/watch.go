package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounce = 100 * time.Millisecond

// Watcher 监听配置文件变化，重新加载成功后回调
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(Config)
	log      *zap.SugaredLogger
	closeCh  chan struct{}
	done     chan struct{}
	once     sync.Once
}

// Watch 监听 path 所在目录（编辑器常以重命名方式保存文件）
func Watch(path string, log *zap.SugaredLogger, onChange func(Config)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	w := &Watcher{
		watcher:  fw,
		path:     abs,
		onChange: onChange,
		log:      log,
		closeCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close 停止监听并等待后台协程退出
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	// 连续写入合并为一次重新加载
	timer := time.NewTimer(debounce)
	timer.Stop()
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)
		case <-timer.C:
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnf("config watcher: %v", err)
		case <-w.closeCh:
			timer.Stop()
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		// 保留旧配置继续运行
		w.log.Warnf("config reload failed: %v", err)
		return
	}
	w.log.Infof("config reloaded: %s", w.path)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
