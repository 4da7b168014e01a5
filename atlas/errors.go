package atlas

import "errors"

// Sentinel errors marking the fatal side of the fatal/degrade boundary.
// Anything wrapping one of these aborts the whole run; best-effort paths
// (spatial code fallback, background topology layers, hierarchy nearest
// fallback) log and continue instead.
var (
	// ErrSchema marks a dataset missing a required column after schema
	// mapping resolution.
	ErrSchema = errors.New("schema mapping unresolved")

	// ErrEmptyLayer marks a required dataset that is empty after loading
	// or filtering.
	ErrEmptyLayer = errors.New("layer is empty")

	// ErrIDCollision marks a replacement dataset whose ids collide with
	// ids retained from the base layer. This indicates a scope error
	// upstream and must never be silently resolved by overwriting.
	ErrIDCollision = errors.New("duplicate feature id")

	// ErrDegenerateTopology marks a topology build that produced
	// non-finite coordinates even after the unquantized retry.
	ErrDegenerateTopology = errors.New("topology build degenerate")
)
