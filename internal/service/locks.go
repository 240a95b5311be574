package service

import (
	"sort"
	"sync"
)

// roomLocks hands out one mutex per room id and frees it once nobody holds it.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*roomLock)}
}

func (l *roomLocks) Lock(roomID string) (unlock func()) {
	l.mu.Lock()
	rl, ok := l.locks[roomID]
	if !ok {
		rl = &roomLock{}
		l.locks[roomID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.Lock()
	return func() {
		rl.Unlock()

		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, roomID)
		}
		l.mu.Unlock()
	}
}

func (l *roomLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// LockAll locks several rooms in sorted id order, so two callers holding
// overlapping sets cannot deadlock. Duplicates are locked once.
func (l *roomLocks) LockAll(roomIDs ...string) (unlock func()) {
	ids := append([]string(nil), roomIDs...)
	sort.Strings(ids)

	unlocks := make([]func(), 0, len(ids))
	for i, id := range ids {
		if i > 0 && ids[i-1] == id {
			continue
		}
		unlocks = append(unlocks, l.Lock(id))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}
