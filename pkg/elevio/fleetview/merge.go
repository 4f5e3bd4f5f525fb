package fleetview

import "github.com/elevio/elevcore/pkg/elevio/types"

// mergeOrderType implements the hall-order merge rule of spec.md §4.4:
//
//	L \ R     None     Active
//	None      None     Active
//	Pending   Pending  Active
//	Active    None     Active
//
// R is never Pending on the wire (Pending is local-only, masked to None by
// types.OrderType's MarshalJSON), so this only needs to branch on whether R
// is Active.
func mergeOrderType(l, r types.OrderType) types.OrderType {
	if r == types.Active {
		return types.Active
	}
	if l == types.Pending {
		return types.Pending
	}
	return types.None
}

// mergeOrderLists applies mergeOrderType floor-by-floor across all three
// columns; the cab column uses the identical rule (spec.md §4.4 "cab column
// is identical") even though a peer's cab queue is never consulted for
// local decisions (spec.md §3).
func mergeOrderLists(prev *types.OrderList, remote types.OrderList) types.OrderList {
	floors := len(remote.Up)
	out := types.NewOrderList(floors)
	for f := 0; f < floors; f++ {
		var pu, pd, pi types.OrderType
		if prev != nil {
			pu, pd, pi = prev.Up[f], prev.Down[f], prev.Inside[f]
		}
		out.Up[f] = mergeOrderType(pu, remote.Up[f])
		out.Down[f] = mergeOrderType(pd, remote.Down[f])
		out.Inside[f] = mergeOrderType(pi, remote.Inside[f])
	}
	return out
}

// mergeElevatorInfo reconciles a peer slot: State, Dirn and Floor come from
// the remote verbatim (the remote is authoritative about its own motion);
// only the hall/cab order columns are merged against what this node
// previously believed about that peer.
func mergeElevatorInfo(prev *types.ElevatorInfo, remote types.ElevatorInfo) types.ElevatorInfo {
	var prevOrders *types.OrderList
	if prev != nil {
		prevOrders = &prev.ResponsibleOrders
	}
	return types.ElevatorInfo{
		ID:                remote.ID,
		State:             remote.State,
		Dirn:              remote.Dirn,
		Floor:             remote.Floor,
		ResponsibleOrders: mergeOrderLists(prevOrders, remote.ResponsibleOrders),
	}
}
