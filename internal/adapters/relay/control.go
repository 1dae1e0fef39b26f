package relay

func (ctl *Controller) handlePing(conn *wsConn) {
	ctl.sendJSON(conn, frame{Type: framePong})
}
