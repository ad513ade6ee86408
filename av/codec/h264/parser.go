// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package h264

import "fmt"

// DefaultMaxAccessUnitSize 单个访问单元的最大字节数
const DefaultMaxAccessUnitSize = 32 << 20

// AccessUnitParser Annex B 访问单元解析器。
//
// 它可以接收任意切分的字节流，按 7.4.1.2.3 检测访问单元边界：
// 当前单元已经包含 VCL 单元后，遇到 AUD/SPS/PPS/SEI 等单元，或者
// first_mb_in_slice 为 0 的 VCL 单元，就开始一个新的访问单元。
type AccessUnitParser struct {
	buf     []byte // 正在接收的访问单元
	out     []byte // 最近一次输出的访问单元
	scan    int    // 下一次扫描起始码的位置
	hasVCL  bool   // buf 中是否已有 VCL 单元
	maxSize int
}

// NewAccessUnitParser 创建访问单元解析器
func NewAccessUnitParser() *AccessUnitParser {
	return &AccessUnitParser{maxSize: DefaultMaxAccessUnitSize}
}

// Parse 实现 codec.Parser。
//
// 返回消费的字节数和可能的一个完整访问单元；当边界是由之前调用中已经
// 缓存的数据确定时，可能消费 0 个字节但输出一个访问单元。
// 空输入表示流结束，输出缓存中剩余的数据。
func (p *AccessUnitParser) Parse(data []byte) (int, []byte, error) {
	if len(data) == 0 {
		return 0, p.flush(), nil
	}

	old := len(p.buf)
	p.buf = append(p.buf, data...)

	boundary, ok := p.findBoundary()
	if !ok {
		if len(p.buf) > p.maxSize {
			size := len(p.buf)
			p.reset()
			return -1, nil, fmt.Errorf("h264: access unit exceeds %d bytes (got %d)", p.maxSize, size)
		}
		return len(data), nil, nil
	}

	p.out = append(p.out[:0], p.buf[:boundary]...)

	// 边界之后属于本次输入的数据不消费，由调用者再次提供
	n, carry := 0, old
	if boundary > old {
		n, carry = boundary-old, boundary
	}
	p.buf = append(p.buf[:0], p.buf[boundary:carry]...)
	p.scan = 0
	p.hasVCL = false
	return n, p.out, nil
}

func (p *AccessUnitParser) flush() []byte {
	if len(p.buf) == 0 {
		return nil
	}
	p.out = append(p.out[:0], p.buf...)
	p.reset()
	return p.out
}

func (p *AccessUnitParser) reset() {
	p.buf = p.buf[:0]
	p.scan = 0
	p.hasVCL = false
}

// findBoundary 从 scan 开始查找下一个访问单元的起始位置（含起始码）
func (p *AccessUnitParser) findBoundary() (int, bool) {
	buf := p.buf
	i := p.scan
	for i+3 <= len(buf) {
		if buf[i] != 0 || buf[i+1] != 0 || buf[i+2] != 1 {
			i++
			continue
		}

		hdr := i + 3
		if hdr >= len(buf) {
			break // 等待 NAL 头
		}

		nt := NalType(buf[hdr])
		start := i
		if start > 0 && buf[start-1] == 0 { // 四字节起始码
			start--
		}

		if p.hasVCL {
			if startsAccessUnit(nt) {
				return start, true
			}
			if IsVCL(nt) {
				if hdr+1 >= len(buf) {
					break // 等待 first_mb_in_slice
				}
				// first_mb_in_slice 为 ue(v)，值为 0 时第一个比特是 1
				if buf[hdr+1]&0x80 != 0 {
					return start, true
				}
			}
		}

		if IsVCL(nt) {
			p.hasVCL = true
		}
		i = hdr + 1
	}

	p.scan = i
	return 0, false
}
