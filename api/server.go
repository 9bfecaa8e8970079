// Package api is the HTTP control surface: start and cancel runs, read
// their status and moments.
package api

import (
	"time"

	"shortsmith/logger"
	"shortsmith/types"

	"github.com/gin-gonic/gin"
)

// JobRunner starts and cancels pipeline runs.
type JobRunner interface {
	Start(sourceURL string, fresh bool) (string, error)
	Cancel() bool
	Busy() bool
}

// StatusSource is the read side of the run state.
type StatusSource interface {
	GetStatus() types.StatusResponse
	GetMoments() []types.Moment
}

// Deps are what the routes need.
type Deps struct {
	Runner JobRunner
	Status StatusSource
	// ValidURL screens job URLs; nil accepts anything non-empty.
	ValidURL func(string) bool
	Log      *logger.Logger
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	log := d.Log.Named("api")

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	RegisterHealthRoutes(r)
	RegisterStatusRoutes(r, d.Status)
	RegisterJobRoutes(r, d.Runner, d.ValidURL, log)
	return r
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		entry := log.WithRequest(c.Request)
		c.Next()

		entry = entry.WithField("status", c.Writer.Status()).WithField("took", time.Since(start).String())
		if c.Writer.Status() >= 500 {
			entry.Error("request failed")
			return
		}
		entry.Debug("request handled")
	}
}
