// Package ecosystem scores the food-chain balancing game.
package ecosystem

import (
	"math"
	"math/rand"
)

// Ideal share of the total population for each trophic level.
const (
	IdealPlants      = 0.45
	IdealHerbivores  = 0.30
	IdealCarnivores  = 0.15
	IdealDecomposers = 0.10
)

const (
	ExcellentThreshold = 80
	GoodThreshold      = 60
)

type Verdict string

const (
	VerdictExcellent  Verdict = "excellent"
	VerdictGood       Verdict = "good"
	VerdictImbalanced Verdict = "imbalanced"
)

// State holds the population of each level.
type State struct {
	Plants      float64 `json:"plants"`
	Herbivores  float64 `json:"herbivores"`
	Carnivores  float64 `json:"carnivores"`
	Decomposers float64 `json:"decomposers"`
}

// Initial is the population the first round starts from.
var Initial = State{Plants: 50, Herbivores: 30, Carnivores: 15, Decomposers: 20}

func (s State) total() float64 {
	return s.Plants + s.Herbivores + s.Carnivores + s.Decomposers
}

// Balance scores how close the populations are to the ideal ratios, from 0 to 100.
func Balance(s State) int {
	total := s.total()
	if total <= 0 {
		return 0
	}

	deviation := math.Abs(s.Plants/total-IdealPlants)*100 +
		math.Abs(s.Herbivores/total-IdealHerbivores)*100 +
		math.Abs(s.Carnivores/total-IdealCarnivores)*100 +
		math.Abs(s.Decomposers/total-IdealDecomposers)*100

	balance := math.Floor(100 - deviation*1.5 + 0.5)
	if balance < 0 {
		return 0
	}
	return int(balance)
}

// Game tracks score and round across evaluations.
type Game struct {
	Score int   `json:"score"`
	Round int   `json:"round"`
	State State `json:"state"`
}

func NewGame() Game {
	return Game{Round: 1, State: Initial}
}

// Result is the outcome of one evaluation.
type Result struct {
	Balance int     `json:"balance"`
	Verdict Verdict `json:"verdict"`
	Game    Game    `json:"game"`
}

// Evaluate scores game.State and advances the game. An excellent balance moves to the next
// round with a freshly varied population drawn from rng.
func Evaluate(game Game, rng *rand.Rand) Result {
	if game.Round < 1 {
		game.Round = 1
	}

	balance := Balance(game.State)
	game.Score += balance

	verdict := VerdictImbalanced
	switch {
	case balance >= ExcellentThreshold:
		verdict = VerdictExcellent
		game.Round++
		game.State = vary(rng)
	case balance >= GoodThreshold:
		verdict = VerdictGood
	}

	return Result{Balance: balance, Verdict: verdict, Game: game}
}

func vary(rng *rand.Rand) State {
	next := func() float64 {
		if rng != nil {
			return rng.Float64()
		}
		return rand.Float64()
	}
	return State{
		Plants:      45 + next()*10,
		Herbivores:  25 + next()*10,
		Carnivores:  10 + next()*10,
		Decomposers: 15 + next()*10,
	}
}
