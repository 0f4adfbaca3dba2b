package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_RunsAllHandlersAndJoinsErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	failure := errors.New("ledger down")

	var seen []string
	d.Subscribe(EventUserLoggedIn, func(_ context.Context, e Event) error {
		seen = append(seen, "first:"+e.Email)
		return failure
	})
	d.Subscribe(EventUserLoggedIn, func(_ context.Context, e Event) error {
		seen = append(seen, "second:"+e.Email)
		return nil
	})
	d.Subscribe(EventRegistrationOutcome, func(context.Context, Event) error {
		t.Fatal("unrelated handler invoked")
		return nil
	})

	event := NewEvent(EventUserLoggedIn, "a@example.com", UserLoggedInPayload{UserID: 1})
	require.NotEmpty(t, event.ID)

	err := d.Publish(context.Background(), event)
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, []string{"first:a@example.com", "second:a@example.com"}, seen)
}

func TestDispatcher_NoHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), NewEvent(EventUserLoggedIn, "a@example.com", nil)))
}
