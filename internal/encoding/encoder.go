package encoding

import (
	"math"

	"github.com/park285/primordia/internal/domain"
)

const (
	DefaultMaxUnits  = 20
	DefaultBoardSize = 60.0

	UnitFeatureDim   = 12
	GlobalFeatureDim = 8

	turnCap   = 5.0
	vpCap     = 100.0
	pointsCap = 500.0
)

var unitFeatureNames = []string{
	"position_x",
	"position_y",
	"wounds_ratio",
	"models_ratio",
	"points_norm",
	"status_active",
	"status_destroyed",
	"status_fled",
	"status_reserve",
	"has_moved",
	"has_shot",
	"has_fought",
}

var globalFeatureNames = []string{
	"turn_progress",
	"phase_norm",
	"active_player",
	"p1_vp_norm",
	"p2_vp_norm",
	"vp_diff_centered",
	"p1_units_active",
	"p2_units_active",
}

// EncodedState is a fixed-shape numeric view of a GameState. Unit rows past
// the roster length are zero and masked out.
type EncodedState struct {
	Global       []float32   `json:"global_features"`
	Player1Units [][]float32 `json:"player1_units"`
	Player2Units [][]float32 `json:"player2_units"`
	Player1Mask  []bool      `json:"unit_mask_p1"`
	Player2Mask  []bool      `json:"unit_mask_p2"`
}

// Flat concatenates the global features and both unit matrices row by row.
func (e EncodedState) Flat() []float32 {
	out := make([]float32, 0, len(e.Global)+(len(e.Player1Units)+len(e.Player2Units))*UnitFeatureDim)
	out = append(out, e.Global...)
	for _, row := range e.Player1Units {
		out = append(out, row...)
	}
	for _, row := range e.Player2Units {
		out = append(out, row...)
	}
	return out
}

// Encoder turns game states into normalised vectors. The zero value is not
// usable; build one with NewEncoder.
type Encoder struct {
	MaxUnits  int
	BoardSize float64
}

// NewEncoder falls back to 20 units and a 60" board for non-positive values.
func NewEncoder(maxUnits int, boardSize float64) *Encoder {
	if maxUnits <= 0 {
		maxUnits = DefaultMaxUnits
	}
	if boardSize <= 0 {
		boardSize = DefaultBoardSize
	}
	return &Encoder{MaxUnits: maxUnits, BoardSize: boardSize}
}

// TotalDim is the length of Flat for this encoder.
func (enc *Encoder) TotalDim() int {
	return GlobalFeatureDim + 2*enc.MaxUnits*UnitFeatureDim
}

// Encode is pure; it reads the state and never touches evaluator scores.
func (enc *Encoder) Encode(state *domain.GameState) EncodedState {
	if state == nil {
		state = &domain.GameState{TurnNumber: 1, CurrentPhase: domain.PhaseCommand, ActivePlayer: 1}
	}
	return EncodedState{
		Global:       enc.encodeGlobal(state),
		Player1Units: enc.encodeUnits(state.Player1Units),
		Player2Units: enc.encodeUnits(state.Player2Units),
		Player1Mask:  enc.mask(state.Player1Units),
		Player2Mask:  enc.mask(state.Player2Units),
	}
}

func (enc *Encoder) encodeGlobal(state *domain.GameState) []float32 {
	f := make([]float32, GlobalFeatureDim)
	f[0] = float32(math.Min(float64(state.TurnNumber)/turnCap, 1))
	// unknown phases encode as COMMAND
	f[1] = float32(float64(max(state.CurrentPhase.Ordinal(), 0)) / float64(domain.MaxPhaseOrdinal))
	f[2] = float32(state.ActivePlayer - 1)
	f[3] = float32(math.Min(float64(state.Player1VP)/vpCap, 1))
	f[4] = float32(math.Min(float64(state.Player2VP)/vpCap, 1))
	diff := float64(state.Player1VP-state.Player2VP) / vpCap
	f[5] = float32(0.5 + clamp(diff, -0.5, 0.5))
	f[6] = float32(math.Min(float64(countAlive(state.Player1Units))/float64(enc.MaxUnits), 1))
	f[7] = float32(math.Min(float64(countAlive(state.Player2Units))/float64(enc.MaxUnits), 1))
	return f
}

func (enc *Encoder) encodeUnits(units []*domain.Unit) [][]float32 {
	rows := make([][]float32, enc.MaxUnits)
	for i := range rows {
		if i < len(units) && units[i] != nil {
			rows[i] = enc.encodeUnit(units[i])
		} else {
			rows[i] = make([]float32, UnitFeatureDim)
		}
	}
	return rows
}

func (enc *Encoder) encodeUnit(u *domain.Unit) []float32 {
	f := make([]float32, UnitFeatureDim)
	f[0] = float32(clamp(u.Position.X/enc.BoardSize, 0, 1))
	f[1] = float32(clamp(u.Position.Y/enc.BoardSize, 0, 1))
	f[2] = float32(float64(u.WoundsCurrent) / float64(max(u.WoundsMax, 1)))
	f[3] = float32(float64(u.ModelsCurrent) / float64(max(u.ModelsMax, 1)))
	f[4] = float32(math.Min(float64(u.PointsCost)/pointsCap, 1))
	if idx := u.Status.Ordinal(); idx >= 0 {
		f[5+idx] = 1
	}
	f[9] = boolFeature(u.HasMoved)
	f[10] = boolFeature(u.HasShot)
	f[11] = boolFeature(u.HasCharged || u.HasFought)
	return f
}

// mask marks roster slots, alive or not.
func (enc *Encoder) mask(units []*domain.Unit) []bool {
	m := make([]bool, enc.MaxUnits)
	for i := 0; i < len(units) && i < enc.MaxUnits; i++ {
		m[i] = true
	}
	return m
}

// FeatureNames lists the per-unit feature names in column order.
func FeatureNames() []string { return append([]string(nil), unitFeatureNames...) }

// GlobalFeatureNames lists the global feature names in order.
func GlobalFeatureNames() []string { return append([]string(nil), globalFeatureNames...) }

func countAlive(units []*domain.Unit) int {
	n := 0
	for _, u := range units {
		if u.IsAlive() {
			n++
		}
	}
	return n
}

func boolFeature(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
