// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"encoding/json"
	"testing"

	"github.com/cnotch/vstream/av/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	assert.Equal(t, ModeReceive, Mode())
	assert.Equal(t, ":17098", Addr())
	assert.Equal(t, FramingRaw, Framing())

	dec := Decoder()
	assert.Equal(t, 640, dec.Width)
	assert.Equal(t, 480, dec.Height)
	assert.Equal(t, 4096, dec.BufferSize)

	enc := Encoder()
	assert.NoError(t, enc.Validate())
	assert.Equal(t, int64(10000000), enc.BitRate)
	assert.Equal(t, 25, enc.FrameRate)
	assert.Equal(t, 10, enc.GopSize)
	assert.Equal(t, 1, enc.MaxBFrames)
	assert.Equal(t, 1400, MTU())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *config)
		ok     bool
	}{
		{"default", func(c *config) {}, true},
		{"send", func(c *config) { c.Mode = ModeSend }, true},
		{"bad_mode", func(c *config) { c.Mode = "play" }, false},
		{"bad_framing", func(c *config) { c.Framing = "flv" }, false},
		{"bad_size", func(c *config) { c.Decoder.Width = 0 }, false},
		{"bad_encoder", func(c *config) { c.Encoder.FrameRate = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaultConfig()
			tt.modify(c)
			err := c.validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestConfigJSON(t *testing.T) {
	raw := `{"mode":"send","framing":"rtp","encoder":{"codec":"zyuv","width":320,"height":240,"pixel_format":"yuv420p","framerate":30,"mtu":1200}}`
	c := defaultConfig()
	require.NoError(t, json.Unmarshal([]byte(raw), c))
	assert.Equal(t, ModeSend, c.Mode)
	assert.Equal(t, FramingRTP, c.Framing)
	assert.Equal(t, 320, c.Encoder.Width)
	assert.Equal(t, 30, c.Encoder.FrameRate)
	assert.Equal(t, 1200, c.Encoder.MTU)
	assert.Equal(t, codec.PixelFormatYUV420P, c.Encoder.PixelFormat)
	assert.Equal(t, int64(10000000), c.Encoder.BitRate)
	assert.NoError(t, c.validate())
}
