package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	name      string
	delivered [][]byte
	closed    bool
}

func (f *fakeHandle) Deliver(payload []byte) bool {
	f.delivered = append(f.delivered, payload)
	return true
}

func (f *fakeHandle) Close() { f.closed = true }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	_, ok := r.Lookup(1)
	req.False(ok)

	h := &fakeHandle{name: "a"}
	prev := r.Register(1, h)
	req.Nil(prev)

	got, ok := r.Lookup(1)
	req.True(ok)
	req.Same(h, got)
	req.Equal(1, r.Online())
}

func TestRegistry_LastConnectWins(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	first := &fakeHandle{name: "first"}
	second := &fakeHandle{name: "second"}

	req.Nil(r.Register(7, first))
	prev := r.Register(7, second)
	req.Same(first, prev)

	got, ok := r.Lookup(7)
	req.True(ok)
	req.Same(second, got)
	req.Equal(1, r.Online())
}

func TestRegistry_UnregisterIgnoresStaleHandle(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	old := &fakeHandle{name: "old"}
	current := &fakeHandle{name: "current"}
	r.Register(3, old)
	r.Register(3, current)

	// The displaced connection disconnects late; the live one must survive.
	r.Unregister(3, old)
	got, ok := r.Lookup(3)
	req.True(ok)
	req.Same(current, got)

	r.Unregister(3, current)
	_, ok = r.Lookup(3)
	req.False(ok)
	req.Equal(0, r.Online())
}

func TestRegistry_ClearClosesHandles(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	handles := make([]*fakeHandle, 5)
	for i := range handles {
		handles[i] = &fakeHandle{name: fmt.Sprintf("h%d", i)}
		r.Register(int64(i+1), handles[i])
	}
	req.Equal(5, r.Online())

	r.Clear()
	req.Equal(0, r.Online())
	for _, h := range handles {
		req.True(h.closed)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			h := &fakeHandle{}
			r.Register(id, h)
			r.Lookup(id)
			r.Unregister(id, h)
		}(int64(i % 10))
	}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			r.Lookup(id)
			r.Online()
		}(int64(i % 10))
	}
	wg.Wait()
}
