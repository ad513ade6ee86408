// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import "iter"

// chunker 把任意长度的输入切成固定大小的块。
//
// 每个块都拷贝到同一个暂存缓冲区，缓冲区尾部有 padding 字节的零填充，
// 解析器向后预读时总是读到 0。
type chunker struct {
	size    int
	padding int
	buf     []byte // size + padding
}

func newChunker(size, padding int) *chunker {
	if padding < 0 {
		padding = 0
	}
	return &chunker{
		size:    size,
		padding: padding,
		buf:     make([]byte, size+padding),
	}
}

// Chunks 返回 data 的分块序列。
// 块引用内部缓冲区，只在迭代到下一块之前有效；块的 cap 包含填充区。
func (c *chunker) Chunks(data []byte) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for len(data) > 0 {
			n := min(len(data), c.size)
			copy(c.buf, data[:n])
			if n < c.size {
				clear(c.buf[n : n+c.padding])
			}
			if !yield(c.buf[:n]) {
				return
			}
			data = data[n:]
		}
	}
}
