// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSID(t *testing.T) {
	var seed uint32
	tcp := NewSID(TCPSession, &seed)
	ws := NewSID(WebsocketSession, &seed)

	assert.Equal(t, TCPSession, tcp.Type())
	assert.Equal(t, uint32(1), tcp.Sequence())
	assert.Equal(t, WebsocketSession, ws.Type())
	assert.Equal(t, uint32(2), ws.Sequence())
	assert.Equal(t, "WEBSOCKET", ws.Type().String())

	parsed, err := ParseSID(ws.String())
	require.NoError(t, err)
	assert.Equal(t, ws, parsed)

	_, err = ParseSID("abc")
	assert.Error(t, err)
}

func TestSIDSequenceWrap(t *testing.T) {
	seed := uint32(maxSessionSequence - 1)
	id := NewSID(WebsocketSession, &seed)
	assert.Equal(t, uint32(1), id.Sequence())
	assert.Equal(t, WebsocketSession, id.Type())

	id = NewSID(TCPSession, &seed)
	assert.Equal(t, uint32(2), id.Sequence())
}
