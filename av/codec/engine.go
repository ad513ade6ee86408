// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package codec

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// 编解码引擎错误定义
var (
	// ErrAgain 当前状态下没有输出，需要更多输入
	ErrAgain = errors.New("codec: resource temporarily unavailable")
	// ErrEOF 引擎已经输出全部数据，不会再有输出
	ErrEOF = errors.New("codec: end of stream")
	// ErrCodecNotFound 未找到指定名称的编解码器
	ErrCodecNotFound = errors.New("codec: codec not found")
)

// Parser 码流解析器，从任意切分的字节流中切出完整的访问单元(access unit)。
//
// Parse 返回消费的字节数 n，以及可能的一个完整访问单元。unit 指向
// 解析器内部存储，仅在下一次调用 Parse 之前有效。
// Parse(nil) 要求解析器输出缓存中剩余的最后一个访问单元。
type Parser interface {
	Parse(data []byte) (n int, unit []byte, err error)
}

// Decoder 解码器，采用 "发送一次，接收零到多次" 的协议。
//
// SendPacket(nil) 进入排空模式，随后 ReceivePicture 在输出完所有图像后返回 ErrEOF。
// ReceivePicture 返回的图像归解码器所有，仅在下一次调用前有效。
type Decoder interface {
	SendPacket(data []byte) error
	ReceivePicture() (*Picture, error)
	Close() error
}

// Encoder 编码器，和 Decoder 对称。
//
// SendPicture 不持有 pic，调用返回后 pic 可被复用；SendPicture(nil) 进入排空模式。
// ReceivePacket 返回的包归编码器所有，仅在下一次调用前有效。
type Encoder interface {
	SendPicture(pic *Picture) error
	ReceivePacket() (*Packet, error)
	Close() error
}

// Engine 编解码引擎
type Engine interface {
	// Name 引擎名称
	Name() string
	// Decoders 引擎支持的解码器名称
	Decoders() []string
	// Encoders 引擎支持的编码器名称
	Encoders() []string
	// DecoderFor 返回可以解码指定编码器输出的解码器名称
	DecoderFor(encoder string) string
	// InputPadding 解析器输入缓冲区尾部要求的零填充字节数
	InputPadding() int

	NewParser(decoder string) (Parser, error)
	NewDecoder(config DecoderConfig) (Decoder, error)
	NewEncoder(config EncoderConfig) (Encoder, error)
}

var (
	enginesMu sync.RWMutex
	engines   []Engine
)

// Register 注册编解码引擎，通常在引擎包的 init 中调用。
// 先注册的引擎在查找时优先。
func Register(e Engine) {
	if e == nil {
		panic("codec: Register engine is nil")
	}

	enginesMu.Lock()
	defer enginesMu.Unlock()
	for _, registered := range engines {
		if registered.Name() == e.Name() {
			panic("codec: Register called twice for engine " + e.Name())
		}
	}
	engines = append(engines, e)
}

// Engines 返回已注册引擎的名称
func Engines() []string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	names := make([]string, 0, len(engines))
	for _, e := range engines {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// FindDecoder 查找支持指定解码器的引擎
func FindDecoder(name string) (Engine, error) {
	return find(name, Engine.Decoders)
}

// FindEncoder 查找支持指定编码器的引擎
func FindEncoder(name string) (Engine, error) {
	return find(name, Engine.Encoders)
}

func find(name string, names func(Engine) []string) (Engine, error) {
	enginesMu.RLock()
	defer enginesMu.RUnlock()

	for _, e := range engines {
		for _, n := range names(e) {
			if n == name {
				return e, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrCodecNotFound, name)
}
