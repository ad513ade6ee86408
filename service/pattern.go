// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import "github.com/cnotch/vstream/media"

var barColors = [][3]byte{
	{235, 235, 235}, // 白
	{235, 235, 16},  // 黄
	{16, 235, 235},  // 青
	{16, 235, 16},   // 绿
	{235, 16, 235},  // 品红
	{235, 16, 16},   // 红
	{16, 16, 235},   // 蓝
	{16, 16, 16},    // 黑
}

// TestPattern 生成水平滚动的彩条 RGB24 图像
type TestPattern struct {
	width, height int
	frame         int
}

// NewTestPattern 创建彩条图像源
func NewTestPattern(width, height int) *TestPattern {
	return &TestPattern{width: width, height: height}
}

// Next 返回下一帧，每帧彩条左移 4 个像素
func (p *TestPattern) Next() []byte {
	pixels := make([]byte, p.width*p.height*media.Channels)
	barWidth := max(p.width/len(barColors), 1)
	shift := p.frame * 4

	row := pixels[:p.width*media.Channels]
	for x := 0; x < p.width; x++ {
		c := barColors[((x+shift)/barWidth)%len(barColors)]
		copy(row[x*media.Channels:], c[:])
	}
	for y := 1; y < p.height; y++ {
		copy(pixels[y*len(row):], row)
	}

	p.frame++
	return pixels
}
