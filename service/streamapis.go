// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"net/http"

	"github.com/cnotch/vstream/network/websocket"
	"github.com/cnotch/vstream/stats"
)

const streamPath = "/ws/stream"

// 初始化 websocket 码流接入
func (s *Service) initHTTPStreams(mux *http.ServeMux) {
	mux.HandleFunc(streamPath, s.onWebSocketRequest)
}

// websocket 请求处理
func (s *Service) onWebSocketRequest(w http.ResponseWriter, r *http.Request) {
	ws, ok := websocket.TryUpgrade(w, r, r.URL.Path)
	if !ok {
		stats.WebsocketConns.Reject()
		return
	}

	if ws.Subprotocol() != "" && ws.Subprotocol() != websocket.Subprotocol {
		s.logger.Warnf("websocket sub-protocol is not supported: %s.", ws.Subprotocol())
		stats.WebsocketConns.Reject()
		ws.Close()
		return
	}

	s.startSession(ws, WebsocketSession, stats.WebsocketConns)
}
