package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateValid(t *testing.T) {
	tests := []struct {
		state State
		valid bool
	}{
		{State{Session: NoSession, Creation: CreationWaitingFirstMessage}, true},
		{State{Session: NoSession, Creation: CreationError, Interaction: InteractionError}, true},
		{State{Session: Creating, Creation: CreationRenaming, Interaction: InteractionLoading}, true},
		{State{Session: Active, Creation: CreationCreated}, true},
		{State{Session: Active, Creation: CreationIdle, Interaction: InteractionDragging}, true},
		{State{Session: Active, Creation: CreationRenaming}, false},
		{State{Session: Active, Creation: CreationError}, false},
		{State{Session: Transitioning, Creation: CreationIdle}, true},
		{State{Session: Transitioning, Creation: CreationCreated}, false},
		{State{Session: SessionState(9)}, false},
		{State{Session: NoSession, Creation: CreationState(42)}, false},
		{State{Session: NoSession, Interaction: InteractionState(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.state.Valid())
		})
	}
}

func TestLeavingCreatingResetsCreationState(t *testing.T) {
	var l lifecycle
	require.NoError(t, l.set(Creating, CreationRenaming))

	require.NoError(t, l.setSession(Active))
	assert.Equal(t, CreationIdle, l.cur.Creation)

	require.NoError(t, l.setSession(Creating))
	require.NoError(t, l.setCreation(CreationWaitingFirstMessageResponse))
	require.NoError(t, l.setSession(Creating))
	assert.Equal(t, CreationWaitingFirstMessageResponse, l.cur.Creation)
}

func TestIllegalTransitionKeepsState(t *testing.T) {
	var l lifecycle
	require.NoError(t, l.set(Active, CreationCreated))
	l.setInteraction(InteractionLoading)

	err := l.setCreation(CreationRenaming)
	require.ErrorIs(t, err, ErrIllegalState)
	assert.Equal(t, State{Session: Active, Creation: CreationCreated, Interaction: InteractionLoading}, l.cur)

	err = l.set(Transitioning, CreationCreated)
	require.ErrorIs(t, err, ErrIllegalState)
	assert.Equal(t, Active, l.cur.Session)
}

func TestCreationBusy(t *testing.T) {
	busy := map[CreationState]bool{
		CreationCreating:                    true,
		CreationWaitingFirstMessageResponse: true,
		CreationRenaming:                    true,
	}
	for c := CreationIdle; c <= CreationError; c++ {
		assert.Equal(t, busy[c], c.busy(), c.String())
	}
}
