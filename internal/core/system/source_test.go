package system

import (
	"context"
	"testing"
	"time"
)

func TestTickerSourceRunsPostedWork(t *testing.T) {
	src := NewTickerSource(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ran := make(chan struct{})
	if !src.Post(func() { close(ran); cancel() }) {
		t.Fatal("Post refused before Run")
	}
	if err := src.Run(ctx); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	select {
	case <-ran:
	default:
		t.Error("posted func never ran")
	}
}

func TestTickerSourcePostAfterRunDoesNotBlock(t *testing.T) {
	src := NewTickerSource(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src.Run(ctx)

	finished := make(chan int)
	go func() {
		accepted := 0
		for i := 0; i < 200; i++ {
			if src.Post(func() {}) {
				accepted++
			}
		}
		finished <- accepted
	}()
	select {
	case n := <-finished:
		if n != 0 {
			t.Errorf("expected every post refused after Run, %d accepted", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Post blocked after Run returned")
	}
}

func TestTickerSourceDeliversFrames(t *testing.T) {
	src := NewTickerSource(time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []time.Duration
	var request func()
	request = func() {
		src.RequestFrame(func(ts time.Duration) {
			got = append(got, ts)
			if len(got) == 3 {
				cancel()
				return
			}
			request()
		})
	}
	request()
	src.Run(ctx)

	if len(got) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Errorf("timestamps not increasing: %v", got)
		}
	}
}
