// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ffmpeg 基于 libavcodec (go-astiav) 的编解码引擎。
//
// 需要使用 ffmpeg 构建标签编译：
//
//	go build -tags ffmpeg
//
// 未指定标签时包为空，不注册任何引擎。
package ffmpeg
