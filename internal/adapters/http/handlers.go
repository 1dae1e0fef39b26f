package http

import (
	"net/http"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/pttstar/internal/api"
	"github.com/dkeye/pttstar/internal/app/hub"
	"github.com/dkeye/pttstar/internal/domain"
)

const sessionCallsignKey = "callsign"

type handlers struct {
	board     *hub.Board
	directory *hub.Directory
}

type whoAmIResponse struct {
	ClientToken string `json:"client_token"`
	Callsign    string `json:"callsign,omitempty"`
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) whoAmI(c *gin.Context) {
	resp := whoAmIResponse{ClientToken: c.GetString(clientTokenKey)}
	if cs, ok := sessions.Default(c).Get(sessionCallsignKey).(string); ok {
		resp.Callsign = cs
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) listRooms(c *gin.Context) {
	rooms := h.board.List()
	out := make([]api.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, api.RoomSummary{Room: string(r.Room), SignalCount: r.SignalCount, LastSignal: r.LastSignal})
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) postSignal(c *gin.Context) {
	room := domain.RoomKey(c.Param("room"))
	var req api.PostSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "missing or invalid content"})
		return
	}
	ts, err := h.board.Post(room, req.Content)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}
	log.Debug().Str("module", "adapters.http").Str("room", string(room)).Int64("ts", ts).Msg("signal posted")
	c.JSON(http.StatusCreated, api.PostSignalResponse{Timestamp: ts})
}

func (h *handlers) fetchSignals(c *gin.Context) {
	room := domain.RoomKey(c.Param("room"))
	var since int64
	if raw := c.Query("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid since"})
			return
		}
		since = v
	}
	c.JSON(http.StatusOK, api.SignalsResponse{Signals: h.board.Since(room, since)})
}

func (h *handlers) roomHead(c *gin.Context) {
	room := domain.RoomKey(c.Param("room"))
	c.JSON(http.StatusOK, api.HeadResponse{Timestamp: h.board.Latest(room)})
}

func (h *handlers) postActivity(c *gin.Context) {
	var a domain.Activity
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid activity"})
		return
	}
	if err := h.directory.Record(a); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}
	sess := sessions.Default(c)
	sess.Set(sessionCallsignKey, a.Callsign)
	if err := sess.Save(); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
	}
	c.Status(http.StatusAccepted)
}

func (h *handlers) listActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	c.JSON(http.StatusOK, h.directory.Recent(limit))
}
