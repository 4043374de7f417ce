package service

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// LoadFunc produces the classifier. It is called at most once successfully.
type LoadFunc func() (Classifier, error)

// Loader owns the process-wide classifier. Get loads it on first use and
// shares it afterwards; a failed load is retried by the next caller.
type Loader struct {
	load LoadFunc

	mu      sync.Mutex
	current atomic.Pointer[loaded]
}

type loaded struct {
	c Classifier
}

func NewLoader(load LoadFunc) *Loader {
	return &Loader{load: load}
}

// NewReadyLoader wraps a classifier that is already loaded.
func NewReadyLoader(c Classifier) *Loader {
	l := &Loader{}
	l.current.Store(&loaded{c: c})
	return l
}

func (l *Loader) Get() (Classifier, error) {
	if cur := l.current.Load(); cur != nil {
		return cur.c, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if cur := l.current.Load(); cur != nil {
		return cur.c, nil
	}
	if l.load == nil {
		return nil, newError(KindModelUnavailable, ErrModelNotReady)
	}

	start := time.Now()
	c, err := l.load()
	if err != nil {
		slog.Error("Failed to load model", slog.String("error", err.Error()))
		return nil, newError(KindModelUnavailable, err)
	}
	l.current.Store(&loaded{c: c})
	slog.Info("Model loaded", slog.Duration("took", time.Since(start)))
	return c, nil
}

func (l *Loader) Ready() bool {
	return l.current.Load() != nil
}

func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur := l.current.Swap(nil)
	if cur == nil {
		return nil
	}
	return cur.c.Close()
}
