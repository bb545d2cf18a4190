package controllers

import (
	"net/http"
	"wqd/internal/notifier"
	"wqd/internal/providers"

	"github.com/gorilla/websocket"
)

type WsController struct {
	hub      *notifier.Hub
	logger   providers.Logger
	upgrader websocket.Upgrader
}

func NewWsController(hub *notifier.Hub, logger providers.Logger) *WsController {
	return &WsController{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Serve upgrades the request and streams alerts until the client goes away.
func (wc *WsController) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := wc.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wc.logger.Warnf(providers.TypeGet, "WebSocket upgrade failed: %s", err)
		return
	}
	notifier.NewClient(wc.hub, conn, wc.logger).Serve()
}
