// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"errors"
	"fmt"

	"github.com/cnotch/vstream/av/codec"
)

// fakeEngine 测试用引擎。
//
// 码流由固定 4 字节的访问单元组成：第一个字节是图像的亮度值，0xff 表示
// 损坏的数据。解码器和编码器都延迟 delay 幅图像输出。
type fakeEngine struct {
	delay    int
	padding  int
	badCount bool // 解析器返回非法的消费字节数
	onParse  func(data []byte)
	decoder  *fakeDecoder // 最近创建的解码器
}

const fakeUnitSize = 4

func (e *fakeEngine) Name() string             { return "fake" }
func (e *fakeEngine) Decoders() []string       { return []string{"fake"} }
func (e *fakeEngine) Encoders() []string       { return []string{"fake"} }
func (e *fakeEngine) DecoderFor(string) string { return "fake" }
func (e *fakeEngine) InputPadding() int        { return e.padding }
func (e *fakeEngine) NewParser(string) (codec.Parser, error) {
	return &fakeParser{engine: e}, nil
}

func (e *fakeEngine) NewDecoder(cfg codec.DecoderConfig) (codec.Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e.decoder = &fakeDecoder{cfg: cfg, delay: e.delay}
	return e.decoder, nil
}

func (e *fakeEngine) NewEncoder(cfg codec.EncoderConfig) (codec.Encoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &fakeEncoder{delay: e.delay}, nil
}

type fakeParser struct {
	engine *fakeEngine
	buf    []byte
	out    []byte
}

func (p *fakeParser) Parse(data []byte) (int, []byte, error) {
	if p.engine.onParse != nil && data != nil {
		p.engine.onParse(data)
	}
	if p.engine.badCount {
		return len(data) + 1, nil, nil
	}

	if len(data) == 0 {
		if len(p.buf) == 0 {
			return 0, nil, nil
		}
		p.out = append(p.out[:0], p.buf...)
		p.buf = p.buf[:0]
		return 0, p.out, nil
	}

	n := min(len(data), fakeUnitSize-len(p.buf))
	p.buf = append(p.buf, data[:n]...)
	if len(p.buf) < fakeUnitSize {
		return n, nil, nil
	}
	p.out = append(p.out[:0], p.buf...)
	p.buf = p.buf[:0]
	return n, p.out, nil
}

type fakeDecoder struct {
	cfg      codec.DecoderConfig
	delay    int
	pending  []*codec.Picture
	ready    []*codec.Picture
	pts      int64
	draining bool
	closed   bool
}

func (d *fakeDecoder) SendPacket(data []byte) error {
	if data == nil {
		d.draining = true
		d.ready = append(d.ready, d.pending...)
		d.pending = nil
		return nil
	}
	if data[0] == 0xff {
		return errors.New("fake: corrupt unit")
	}

	pic, _ := codec.NewPicture(codec.PixelFormatYUV420P, d.cfg.Width, d.cfg.Height)
	for i := range pic.Planes[0] {
		pic.Planes[0][i] = data[0]
	}
	for i := range pic.Planes[1] {
		pic.Planes[1][i] = 128
		pic.Planes[2][i] = 128
	}
	pic.Pts = d.pts
	d.pts++

	d.pending = append(d.pending, pic)
	if len(d.pending) > d.delay {
		d.ready = append(d.ready, d.pending[0])
		d.pending = d.pending[1:]
	}
	return nil
}

func (d *fakeDecoder) ReceivePicture() (*codec.Picture, error) {
	if len(d.ready) > 0 {
		pic := d.ready[0]
		d.ready = d.ready[1:]
		return pic, nil
	}
	if d.draining {
		return nil, codec.ErrEOF
	}
	return nil, codec.ErrAgain
}

func (d *fakeDecoder) Close() error {
	d.closed = true
	return nil
}

type fakeEncoder struct {
	delay    int
	pending  []*codec.Packet
	ready    []*codec.Packet
	flushing bool
	sent     []int64 // 收到的 pts
}

func (e *fakeEncoder) SendPicture(pic *codec.Picture) error {
	if pic == nil {
		e.flushing = true
		e.ready = append(e.ready, e.pending...)
		e.pending = nil
		return nil
	}
	if pic.Planes[0][0] == 0xff {
		return fmt.Errorf("fake: cannot encode picture %d", pic.Pts)
	}

	e.sent = append(e.sent, pic.Pts)
	pkt := &codec.Packet{Data: []byte{pic.Planes[0][0], byte(pic.Pts), 0, 0}, Pts: pic.Pts}
	e.pending = append(e.pending, pkt)
	if len(e.pending) > e.delay {
		e.ready = append(e.ready, e.pending[0])
		e.pending = e.pending[1:]
	}
	return nil
}

func (e *fakeEncoder) ReceivePacket() (*codec.Packet, error) {
	if len(e.ready) > 0 {
		pkt := e.ready[0]
		e.ready = e.ready[1:]
		return pkt, nil
	}
	if e.flushing {
		return nil, codec.ErrEOF
	}
	return nil, codec.ErrAgain
}

func (e *fakeEncoder) Close() error { return nil }

// reusingEngine 编码器每次输出都复用同一个包缓冲区
type reusingEngine struct {
	fakeEngine
}

func (e *reusingEngine) NewEncoder(cfg codec.EncoderConfig) (codec.Encoder, error) {
	enc, err := e.fakeEngine.NewEncoder(cfg)
	if err != nil {
		return nil, err
	}
	return &reusingEncoder{fakeEncoder: enc.(*fakeEncoder)}, nil
}

type reusingEncoder struct {
	*fakeEncoder
	out codec.Packet
}

func (e *reusingEncoder) ReceivePacket() (*codec.Packet, error) {
	pkt, err := e.fakeEncoder.ReceivePacket()
	if err != nil {
		return nil, err
	}
	e.out.Data = append(e.out.Data[:0], pkt.Data...)
	e.out.Pts = pkt.Pts
	return &e.out, nil
}

// fakeStream 返回亮度值依次为 values 的码流
func fakeStream(values ...byte) []byte {
	var stream []byte
	for _, v := range values {
		stream = append(stream, v, 1, 2, 3)
	}
	return stream
}
