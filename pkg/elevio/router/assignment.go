package router

import "github.com/elevio/elevcore/pkg/elevio/types"

// AssignmentMessage is the wire payload of spec.md §4.5's assignment
// transport: "(ownerID, button)". Burst-sent by the router that decided a
// hand-off, consumed by every node's assignment receiver.
type AssignmentMessage struct {
	Owner  types.NodeID  `json:"owner"`
	Button types.CallButton `json:"button"`
}
