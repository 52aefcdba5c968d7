package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/enzosantiagosrv1245-cell/among-us/internal/config"

	"gorm.io/gorm"
)

type Server struct {
	store    *Store
	db       *gorm.DB
	ws       *wsHub
	homeWS   *homeHub
	cfg      config.Config
	limiter  *rateLimiter
	timersMu sync.Mutex
	timers   map[string]*time.Timer
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	return &Server{
		store:   NewStore(),
		db:      conn,
		ws:      newWSHub(),
		homeWS:  newHomeHub(),
		cfg:     cfg,
		limiter: newRateLimiter(cfg.CreateRoomsPerMinute),
		timers:  make(map[string]*time.Timer),
	}
}

func (s *Server) Handler() http.Handler {
	return s.routes()
}
