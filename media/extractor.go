// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"fmt"
	"iter"

	"github.com/cnotch/vstream/av/codec"
)

// maxStalls 解析器连续不消费数据的最大次数
const maxStalls = 16

// extractor 调用解析器从数据块中切出访问单元
type extractor struct {
	parser codec.Parser
}

// Units 返回 chunk 中完整访问单元的序列，按解析器给出的顺序。
// 访问单元引用解析器内部存储，只在迭代到下一项之前有效。
// 出错时序列以一个 ErrParse 错误结束。
func (x *extractor) Units(chunk []byte) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		stalls := 0
		for len(chunk) > 0 {
			n, unit, err := x.parser.Parse(chunk)
			if err != nil {
				yield(nil, newError(ErrParse, "parse", err))
				return
			}
			if n < 0 || n > len(chunk) {
				yield(nil, newError(ErrParse, "parse",
					fmt.Errorf("invalid consumed byte count %d of %d", n, len(chunk))))
				return
			}

			if n == 0 {
				stalls++
				if unit == nil || stalls > maxStalls {
					yield(nil, newError(ErrParse, "parse", fmt.Errorf("parser made no progress")))
					return
				}
			} else {
				stalls = 0
			}

			chunk = chunk[n:]
			if unit != nil && !yield(unit, nil) {
				return
			}
		}
	}
}

// Flush 取出解析器中缓存的最后一个访问单元
func (x *extractor) Flush() ([]byte, error) {
	_, unit, err := x.parser.Parse(nil)
	if err != nil {
		return nil, newError(ErrParse, "flush", err)
	}
	return unit, nil
}
