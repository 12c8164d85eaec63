package state

import (
	"fmt"
	"log/slog"

	"agent-lab/contract"
)

// StoreMode selects which StateStore implementation a process runs against.
type StoreMode string

const (
	// StoreModeLocal is the in-process lock-backed store.
	StoreModeLocal StoreMode = "local"
	// StoreModeMirrored commits locally and pushes each committed update to
	// the replica best-effort.
	StoreModeMirrored StoreMode = "mirrored"
	// StoreModeReplica runs entirely against the remote history, for agent
	// processes outside the local lock's reach.
	StoreModeReplica StoreMode = "replica"
)

// NewStore builds the configured StateStore. An empty mode means local.
func NewStore(mode StoreMode, schema Schema, client *ReplicaClient, agentID string, log *slog.Logger) (contract.StateStore, error) {
	switch mode {
	case StoreModeLocal, "":
		return NewLocalStore(schema), nil
	case StoreModeMirrored:
		if client == nil {
			return nil, fmt.Errorf("store mode %q requires a replica client", mode)
		}
		return NewMirroredStore(NewLocalStore(schema), client, agentID, log), nil
	case StoreModeReplica:
		if client == nil {
			return nil, fmt.Errorf("store mode %q requires a replica client", mode)
		}
		return NewReplicaStore(schema, client, log), nil
	default:
		return nil, fmt.Errorf("unknown store mode %q", mode)
	}
}
