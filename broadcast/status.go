package broadcast

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// State is a read-only snapshot of the engine for inspection.
type State struct {
	NodeID         string   `json:"node_id"`
	Neighbors      []string `json:"neighbors"`
	NumValues      int      `json:"num_values"`
	PendingEntries int      `json:"pending_entries"`
}

// Status exposes the engine state on the admin server.
type Status struct {
	engine *Engine
}

func NewStatus(engine *Engine) *Status {
	return &Status{
		engine: engine,
	}
}

func (s *Status) Register(group *gin.RouterGroup) {
	group.GET("/state", s.stateRoute)
}

func (s *Status) stateRoute(c *gin.Context) {
	c.JSON(http.StatusOK, State{
		NodeID:         s.engine.NodeID(),
		Neighbors:      s.engine.Neighbors(),
		NumValues:      s.engine.NumValues(),
		PendingEntries: s.engine.NumPending(),
	})
}
