// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package websocket

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamOverWebsocket(t *testing.T) {
	received := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, ok := TryUpgrade(w, r, r.URL.Path)
		if !ok {
			return
		}
		defer ws.Close()
		assert.Equal(t, Subprotocol, ws.Subprotocol())
		assert.Equal(t, "/ws/stream", ws.Path())

		data, _ := io.ReadAll(io.LimitReader(ws, 10))
		received <- data
	}))
	defer srv.Close()

	conn, err := Dial("ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/stream")
	require.NoError(t, err)
	defer conn.Close()

	// 码流跨越多个消息
	_, err = conn.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	_, err = conn.Write([]byte{4, 5, 6, 7, 8, 9, 10})
	require.NoError(t, err)

	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, <-received)
}

func TestTryUpgradeRejectsPlainRequest(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ws/stream", nil)
	_, ok := TryUpgrade(w, r, "/ws/stream")
	assert.False(t, ok)

	_, ok = TryUpgrade(nil, nil, "")
	assert.False(t, ok)
}

func TestCloseEndsStream(t *testing.T) {
	received := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, ok := TryUpgrade(w, r, r.URL.Path)
		if !ok {
			return
		}
		defer ws.Close()

		// 对端关闭后 ReadAll 以 io.EOF 正常结束
		data, err := io.ReadAll(ws)
		assert.NoError(t, err)
		received <- data
	}))
	defer srv.Close()

	conn, err := Dial("ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/stream")
	require.NoError(t, err)

	_, err = conn.Write([]byte("stream"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	assert.Equal(t, []byte("stream"), <-received)
}
