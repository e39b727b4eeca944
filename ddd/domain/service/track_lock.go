package service

import "sync"

// TrackLocks 按曲目名串行化输出目录创建和目录入库
type TrackLocks struct {
	mu    sync.Mutex
	locks map[string]*trackLock
}

type trackLock struct {
	mu   sync.Mutex
	refs int
}

func NewTrackLocks() *TrackLocks {
	return &TrackLocks{locks: make(map[string]*trackLock)}
}

// Lock 获取曲目名锁，返回的函数用于释放
func (l *TrackLocks) Lock(name string) func() {
	l.mu.Lock()
	lk, ok := l.locks[name]
	if !ok {
		lk = &trackLock{}
		l.locks[name] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, name)
		}
		l.mu.Unlock()
	}
}

// Len 当前持有或等待中的曲目名数量
func (l *TrackLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
