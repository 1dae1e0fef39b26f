package http

import (
	"context"
	"os"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/pttstar/internal/adapters/relay"
	"github.com/dkeye/pttstar/internal/api"
	"github.com/dkeye/pttstar/internal/app/hub"
	"github.com/dkeye/pttstar/internal/config"
)

const (
	clientTokenCookie = "ct"
	clientTokenKey    = "client_token"
	sessionName       = "PTTSessions"
)

// Server bundles the state the HTTP surface serves.
type Server struct {
	Board     *hub.Board
	Directory *hub.Directory
	Relay     *relay.Controller
}

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(clientTokenCookie)
		if token == "" {
			token = genClientToken()
			c.SetCookie(clientTokenCookie, token, 3600*24*7, "/", "", false, true)
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.ServerConfig, srv Server) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(ClientTokenMiddleware())

	if st, err := os.Stat(cfg.StaticPath); err == nil && st.IsDir() {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
		log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("serving static files")
	}

	h := &handlers{board: srv.Board, directory: srv.Directory}
	ws := func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString(clientTokenKey)).Msg("ws signal endpoint hit")
		srv.Relay.HandleSignal(ctx, c)
	}
	r.GET(api.PathSignal, ws)

	g := r.Group("/api")
	g.GET("/health", h.health)
	g.GET("/whoami", h.whoAmI)
	g.GET("/ws/signal", ws)
	g.GET("/rooms", h.listRooms)
	g.POST("/rooms/:room/signals", h.postSignal)
	g.GET("/rooms/:room/signals", h.fetchSignals)
	g.GET("/rooms/:room/head", h.roomHead)
	g.POST("/activity", h.postActivity)
	g.GET("/activity", h.listActivity)

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
