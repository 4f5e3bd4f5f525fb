package fleetview

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/elevio/elevcore/pkg/elevio/types"
)

func TestMergeOrderType_RemoteActiveAlwaysWins(t *testing.T) {
	assert.Equal(t, types.Active, mergeOrderType(types.None, types.Active))
	assert.Equal(t, types.Active, mergeOrderType(types.Pending, types.Active))
}

func TestMergeOrderType_PreviousPendingSurvivesRemoteNone(t *testing.T) {
	assert.Equal(t, types.Pending, mergeOrderType(types.Pending, types.None))
}

func TestMergeOrderType_PreviousActiveDemotesToNoneOnRemoteNone(t *testing.T) {
	// Active->None on a remote None is legal: the remote is authoritative
	// about its own responsibility list, so a cleared order is trusted.
	assert.Equal(t, types.None, mergeOrderType(types.Active, types.None))
}

func TestMergeElevatorInfo_StateDirnFloorComeFromRemote(t *testing.T) {
	prev := types.ElevatorInfo{
		ID:                1,
		State:             types.Idle,
		Dirn:              types.Stop,
		Floor:             0,
		ResponsibleOrders: types.NewOrderList(5),
	}
	remote := types.ElevatorInfo{
		ID:                1,
		State:             types.Moving,
		Dirn:              types.Up,
		Floor:             2,
		ResponsibleOrders: types.NewOrderList(5),
	}
	merged := mergeElevatorInfo(&prev, remote)
	assert.Equal(t, types.Moving, merged.State)
	assert.Equal(t, types.Up, merged.Dirn)
	assert.Equal(t, 2, merged.Floor)
}

func TestMergeElevatorInfo_NilPrevTreatsEveryColumnAsNone(t *testing.T) {
	remote := types.ElevatorInfo{ID: 1, ResponsibleOrders: types.NewOrderList(3)}
	remote.ResponsibleOrders.Up[0] = types.Active
	merged := mergeElevatorInfo(nil, remote)
	assert.Equal(t, types.Active, merged.ResponsibleOrders.Up[0])
	assert.Equal(t, types.None, merged.ResponsibleOrders.Down[0])
}
