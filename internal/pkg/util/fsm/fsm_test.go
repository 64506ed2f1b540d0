package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/looplab/fsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapEventStoresError(t *testing.T) {
	boom := errors.New("boom")
	f := fsm.NewFSM("closed",
		fsm.Events{{Name: "trip", Src: []string{"closed"}, Dst: "open"}},
		fsm.Callbacks{
			"enter_open": WrapEvent(func(context.Context, *fsm.Event) error { return boom }),
		},
	)

	err := f.Event(context.Background(), "trip")
	assert.ErrorIs(t, err, boom)
}

func TestFire(t *testing.T) {
	f := fsm.NewFSM("closed",
		fsm.Events{{Name: "trip", Src: []string{"closed", "open"}, Dst: "open"}},
		fsm.Callbacks{},
	)

	require.NoError(t, Fire(context.Background(), f, "trip"))
	assert.Equal(t, "open", f.Current())

	// open -> open is a no-op, not an error.
	require.NoError(t, Fire(context.Background(), f, "trip"))

	var invalid fsm.UnknownEventError
	assert.ErrorAs(t, Fire(context.Background(), f, "reset"), &invalid)
}
