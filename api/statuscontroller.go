package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterStatusRoutes exposes the current run state.
func RegisterStatusRoutes(r *gin.Engine, src StatusSource) {
	g := r.Group("/api")
	g.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, src.GetStatus())
	})
	g.GET("/moments", func(c *gin.Context) {
		moments := src.GetMoments()
		c.JSON(http.StatusOK, gin.H{"count": len(moments), "moments": moments})
	})
}
