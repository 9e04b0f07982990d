package game

import (
	"fmt"

	"github.com/zefirior/tastify-services/internal/comm"
	"github.com/zefirior/tastify-services/internal/roomsvc/models"
)

// Variant is the strategy one room plays by. The state machine stays
// variant-agnostic: round shape, submission eligibility, quorum and
// scoring all come from here. Selected per room at creation time.
type Variant interface {
	// Type is the unique key stored on the room.
	Type() string

	// InitialStage is the stage a fresh round opens in. The numeric
	// variant has no suggestion phase and opens collecting right away.
	InitialStage() models.RoundStage

	// NewRound builds the next round for the room: suggester rotation,
	// stage and any variant payload such as the hidden target.
	NewRound(g *models.RoomGraph, number int) (*models.Round, error)

	// CanGuess validates that the player may submit in this round.
	CanGuess(g *models.RoomGraph, round *models.Round, player *models.Player) error

	// ValidateGuess checks the submission payload shape.
	ValidateGuess(payload comm.GuessPayload) error

	// Quorum is the number of submissions that ends the round early.
	Quorum(g *models.RoomGraph) int

	// Score computes the round awards, user uid -> points. Pure; the
	// caller persists results exactly once.
	Score(round *models.Round, g *models.RoomGraph) map[string]int
}

// Registry holds the enabled variants and the default pick for rooms
// created without an explicit game type.
type Registry struct {
	variants    map[string]Variant
	defaultType string
}

func NewRegistry(defaultType string) *Registry {
	return &Registry{
		variants:    make(map[string]Variant),
		defaultType: defaultType,
	}
}

func (r *Registry) Register(v Variant) error {
	if _, ok := r.variants[v.Type()]; ok {
		return fmt.Errorf("game %q is already registered", v.Type())
	}
	r.variants[v.Type()] = v
	return nil
}

func (r *Registry) Get(gameType string) (Variant, bool) {
	v, ok := r.variants[gameType]
	return v, ok
}

func (r *Registry) DefaultType() string {
	return r.defaultType
}

// Validate checks that the default variant has an implementation.
func (r *Registry) Validate() error {
	if _, ok := r.variants[r.defaultType]; !ok {
		return fmt.Errorf("default game %q has no implementation", r.defaultType)
	}
	return nil
}
