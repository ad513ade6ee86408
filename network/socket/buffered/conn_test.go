// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package buffered

import (
	"bytes"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/kelindar/rate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConn(t *testing.T) {
	conn := NewConn(new(fakeConn))
	defer conn.Close()

	assert.Equal(t, 0, conn.Buffered())
	assert.Nil(t, conn.LocalAddr())
	assert.Nil(t, conn.RemoteAddr())
	assert.Nil(t, conn.SetDeadline(time.Now()))
	assert.Nil(t, conn.SetReadDeadline(time.Now()))
	assert.Nil(t, conn.SetWriteDeadline(time.Now()))
	assert.Same(t, conn, NewConn(conn))
}

func TestConnWriteOrder(t *testing.T) {
	socket := new(fakeConn)
	conn := NewConn(socket, BufferSize(minBufferSize))
	conn.limit = rate.New(1, time.Hour)

	var want []byte
	for i := 0; i < 3000; i++ {
		p := []byte{byte(i), byte(i >> 8), 7}
		want = append(want, p...)
		n, err := conn.Write(p)
		require.NoError(t, err)
		require.Equal(t, 3, n)
	}
	big := bytes.Repeat([]byte{9}, 3*minBufferSize)
	want = append(want, big...)
	n, err := conn.Write(big)
	require.NoError(t, err)
	assert.Equal(t, len(big), n)
	assert.True(t, conn.Buffered() <= minBufferSize)

	_, err = conn.Flush()
	require.NoError(t, err)
	assert.Equal(t, 0, conn.Buffered())
	assert.Equal(t, want, socket.Bytes())
	assert.Equal(t, int64(len(want)), conn.Written())
	assert.Equal(t, minBufferSize, conn.writer.Cap(), "buffer can't extend")
}

func TestConnFlushRate(t *testing.T) {
	socket := new(fakeConn)
	conn := NewConn(socket, FlushRate(1))
	conn.limit = rate.New(1, time.Millisecond)

	_, err := conn.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = conn.Write([]byte{4})
	require.NoError(t, err)

	// 超过刷新间隔的写直接到达底层连接
	assert.Equal(t, 0, conn.Buffered())
	assert.Equal(t, []byte{1, 2, 3, 4}, socket.Bytes())
}

func TestConnDelayedFlush(t *testing.T) {
	socket := new(fakeConn)
	conn := NewConn(socket, FlushRate(100))
	conn.limit = rate.New(1, time.Hour)

	_, err := conn.Write([]byte{1})
	require.NoError(t, err)
	_, err = conn.Write([]byte{2, 3})
	require.NoError(t, err)

	// 没有后续的写，数据在一个刷新间隔后写出
	assert.Eventually(t, func() bool {
		return bytes.Equal([]byte{1, 2, 3}, socket.Bytes())
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, conn.Buffered())
	assert.Equal(t, int64(3), conn.Written())
}

func TestConnCloseDropsBuffered(t *testing.T) {
	socket := new(fakeConn)
	conn := NewConn(socket, FlushRate(100))
	conn.limit = rate.New(1, time.Hour)

	conn.Write([]byte{1})
	conn.Write([]byte{2})
	require.NoError(t, conn.Close())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, conn.Buffered())
	assert.NotContains(t, socket.Bytes(), byte(2))
}

// ------------------------------------------------------------------------------------

type fakeConn struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (m *fakeConn) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.buf.Bytes()...)
}

func (m *fakeConn) Read(p []byte) (int, error) {
	return 0, nil
}

func (m *fakeConn) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(p) > minBufferSize {
		p = p[:minBufferSize]
	}
	return m.buf.Write(p)
}

func (m *fakeConn) Close() error {
	return nil
}

func (m *fakeConn) LocalAddr() net.Addr {
	return nil
}

func (m *fakeConn) RemoteAddr() net.Addr {
	return nil
}

func (m *fakeConn) SetDeadline(t time.Time) error {
	return nil
}

func (m *fakeConn) SetReadDeadline(t time.Time) error {
	return nil
}

func (m *fakeConn) SetWriteDeadline(t time.Time) error {
	return nil
}
