package batch

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		n, size int
		want    []int
	}{
		{n: 0, size: 5, want: nil},
		{n: 3, size: 5, want: []int{3}},
		{n: 5, size: 5, want: []int{5}},
		{n: 12, size: 5, want: []int{5, 5, 2}},
		{n: 7, size: 3, want: []int{3, 3, 1}},
		{n: 4, size: 0, want: []int{4}},
	}
	for _, tt := range tests {
		items := make([]int, tt.n)
		var got []int
		for _, chunk := range Split(items, tt.size) {
			got = append(got, len(chunk))
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("Split(%d, %d) sizes = %v, want %v", tt.n, tt.size, got, tt.want)
		}
	}
}

func TestRunProcessesBatchesInOrder(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

	var (
		mu       sync.Mutex
		finished = map[int]int{}
		batchNo  atomic.Int32
		inFlight atomic.Int32
		maxSeen  atomic.Int32
	)
	r := Runner[int]{
		Size:  5,
		Pause: time.Millisecond,
		OnBatch: func(chunk []int, err error) bool {
			batchNo.Add(1)
			return true
		},
	}

	err := r.Run(context.Background(), items, func(ctx context.Context, item int) error {
		cur := inFlight.Add(1)
		for {
			prev := maxSeen.Load()
			if cur <= prev || maxSeen.CompareAndSwap(prev, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)

		mu.Lock()
		finished[item] = int(batchNo.Load())
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(finished) != len(items) {
		t.Fatalf("processed %d items, want %d", len(finished), len(items))
	}
	if maxSeen.Load() > 5 {
		t.Errorf("max concurrency %d exceeds batch size", maxSeen.Load())
	}
	for item, b := range finished {
		want := (item - 1) / 5
		if b != want {
			t.Errorf("item %d finished during batch %d, want %d", item, b, want)
		}
	}
}

func TestRunStopsOnErrorWithoutHook(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	r := Runner[int]{Size: 2}
	err := r.Run(context.Background(), []int{1, 2, 3, 4}, func(ctx context.Context, item int) error {
		calls.Add(1)
		if item == 1 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestRunHookContinuesAndStops(t *testing.T) {
	boom := errors.New("boom")
	var failed [][]int
	var seen atomic.Int32
	r := Runner[int]{
		Size: 2,
		OnBatch: func(chunk []int, err error) bool {
			if err != nil {
				failed = append(failed, chunk)
				return true
			}
			return !slices.Contains(chunk, 4)
		},
	}
	err := r.Run(context.Background(), []int{1, 2, 3, 4, 5, 6}, func(ctx context.Context, item int) error {
		seen.Add(1)
		if item == 2 {
			return boom
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(failed) != 1 || !slices.Equal(failed[0], []int{1, 2}) {
		t.Errorf("failed batches = %v", failed)
	}
	if seen.Load() != 4 {
		t.Errorf("items seen = %d, want 4", seen.Load())
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := Runner[int]{Size: 1, Pause: time.Hour}
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx, []int{1, 2}, func(ctx context.Context, item int) error {
			calls.Add(1)
			return nil
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}
