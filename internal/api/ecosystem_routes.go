package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bharatverse/bharatverse/internal/ecosystem"
)

var errNegativePopulation = errors.New("negative population")

func (h *Handler) handleNewGame(c *gin.Context) {
	game := ecosystem.NewGame()
	c.JSON(http.StatusOK, gin.H{"game": game, "balance": ecosystem.Balance(game.State)})
}

func (h *Handler) handleEvaluate(c *gin.Context) {
	var game ecosystem.Game
	if err := c.ShouldBindJSON(&game); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	state := game.State
	if state.Plants < 0 || state.Herbivores < 0 || state.Carnivores < 0 || state.Decomposers < 0 {
		writeError(c, http.StatusBadRequest, "populations cannot be negative", errNegativePopulation)
		return
	}

	c.JSON(http.StatusOK, ecosystem.Evaluate(game, nil))
}
