package relay

func (ctl *Controller) handleWhoAmI(sid string, conn *wsConn) {
	resp := frame{Type: frameWhoAmI, From: sid}
	if room, ok := ctl.Registry.RoomOf(sid); ok {
		resp.Room = room
	}
	ctl.sendJSON(conn, resp)
}
