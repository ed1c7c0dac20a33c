package models

import (
	"time"

	"github.com/mohamedkhairy/streamta/pkg/indicator"
)

// EngineSnapshotVersion is bumped whenever the snapshot layout changes.
// Snapshots carrying another version are ignored and the engine starts cold.
const EngineSnapshotVersion = 1

// EngineSnapshot is a checkpoint of every tracked symbol
type EngineSnapshot struct {
	Version  int                        `json:"version"`
	StreamID string                     `json:"stream_id,omitempty"` // last acknowledged bar message
	TakenAt  time.Time                  `json:"taken_at"`
	Symbols  []indicator.SymbolSnapshot `json:"symbols"`
}

// Compatible reports whether the snapshot can be restored by this build
func (s *EngineSnapshot) Compatible() bool {
	return s != nil && s.Version == EngineSnapshotVersion
}
