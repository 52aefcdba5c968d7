package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// routes wires the read-only HTTP surface next to the realtime channel.
func (s *Server) routes() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.handleHealth)
	r.GET("/api/rooms", s.handleListRooms)
	r.GET("/ws", gin.WrapF(s.handleWebsocket))
	r.GET("/ws/rooms", gin.WrapF(s.handleHomeWebsocket))
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.ListRoomSummaries())
}
