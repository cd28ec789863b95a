package service

import (
	"sync"
	"testing"
)

type add struct{ n int }

func counterReducer(s int, a Action) int {
	if a, ok := a.(add); ok {
		return s + a.n
	}
	return s
}

func TestStore_DispatchNotifiesInOrder(t *testing.T) {
	st := NewStore(0, counterReducer)

	var seen []string
	st.Subscribe(func(prev, next int) { seen = append(seen, "first") })
	st.Subscribe(func(prev, next int) {
		if next != prev+2 {
			t.Errorf("expected transition by 2, got %d -> %d", prev, next)
		}
		seen = append(seen, "second")
	})

	if got := st.Dispatch(add{n: 2}); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if len(seen) != 2 || seen[0] != "first" || seen[1] != "second" {
		t.Fatalf("unexpected listener order: %v", seen)
	}
}

func TestStore_UnknownActionKeepsState(t *testing.T) {
	st := NewStore(5, counterReducer)
	if got := st.Dispatch(struct{}{}); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
}

func TestStore_Unsubscribe(t *testing.T) {
	st := NewStore(0, counterReducer)

	calls := 0
	unsubscribe := st.Subscribe(func(_, _ int) { calls++ })
	st.Dispatch(add{n: 1})
	unsubscribe()
	st.Dispatch(add{n: 1})

	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if st.State() != 2 {
		t.Fatalf("expected state 2, got %d", st.State())
	}
}

func TestStore_ConcurrentDispatchIsSerialized(t *testing.T) {
	st := NewStore(0, counterReducer)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.Dispatch(add{n: 1})
		}()
	}
	wg.Wait()

	if st.State() != 100 {
		t.Fatalf("expected 100, got %d", st.State())
	}
}
