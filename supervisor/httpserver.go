package supervisor

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autoweb/agent/core"
	"github.com/autoweb/agent/graph"
)

// statusServer is the optional read-only control-plane surface: a liveness
// check, a checkpoint inspector for a given thread_id, and a Prometheus
// scrape endpoint, for operators who want to watch a long-running task
// without attaching to its REPL.
type statusServer struct {
	addr         string
	checkpointer graph.Checkpointer
	logger       core.Logger
	engine       *gin.Engine
}

func newStatusServer(addr string, checkpointer graph.Checkpointer, logger core.Logger, metrics *runMetrics) *statusServer {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &statusServer{addr: addr, checkpointer: checkpointer, logger: logger, engine: r}
	r.GET("/healthz", s.handleHealthz)
	r.GET("/state", s.handleState)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{})))
	}
	return s
}

func (s *statusServer) run() {
	if err := s.engine.Run(s.addr); err != nil {
		s.logger.Warn("supervisor status server stopped", map[string]interface{}{"error": err.Error()})
	}
}

func (s *statusServer) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleState returns the last checkpointed AgentState for ?thread_id=.
func (s *statusServer) handleState(c *gin.Context) {
	threadID := c.Query("thread_id")
	if threadID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "thread_id is required"})
		return
	}

	cp, ok, err := s.checkpointer.Load(context.Background(), threadID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no checkpoint for thread_id"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"next": cp.Next, "state": cp.State})
}
