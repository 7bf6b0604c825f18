package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReturnsWhileHandlerStillRunning(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(nil)

	release := make(chan struct{})
	done := make(chan struct{})
	dispatcher.Subscribe(EventRequestCreated, func(ctx context.Context, event Event) error {
		<-release
		close(done)
		return nil
	})

	start := time.Now()
	err := dispatcher.Publish(context.Background(), Event{Type: EventRequestCreated})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	select {
	case <-done:
		t.Fatal("handler finished before being released")
	default:
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}
}

func TestPublishReportsHandlerErrors(t *testing.T) {
	failed := make(chan error, 1)
	dispatcher := NewInMemoryDispatcher(func(event Event, err error) {
		failed <- err
	})

	handlerErr := errors.New("smtp unavailable")
	dispatcher.Subscribe(EventRequestRated, func(ctx context.Context, event Event) error {
		return handlerErr
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventRequestRated}))

	select {
	case err := <-failed:
		assert.ErrorIs(t, err, handlerErr)
	case <-time.After(time.Second):
		t.Fatal("handler error was never reported")
	}
}

func TestPublishRunsAllHandlersForType(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(nil)

	hits := make(chan string, 2)
	dispatcher.Subscribe(EventRequestAssigned, func(ctx context.Context, event Event) error {
		hits <- "first"
		return nil
	})
	dispatcher.Subscribe(EventRequestAssigned, func(ctx context.Context, event Event) error {
		hits <- "second"
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventRequestAssigned}))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case name := <-hits:
			seen[name] = true
		case <-time.After(time.Second):
			t.Fatal("not every handler ran")
		}
	}
	assert.True(t, seen["first"])
	assert.True(t, seen["second"])
}
