// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package h264

// StartCode Annex B 四字节起始码
var StartCode = []byte{0x00, 0x00, 0x00, 0x01}

// SplitAnnexB 把 Annex B 字节流切分成 NAL 单元（不含起始码）。
// 第一个起始码之前的数据被丢弃。
func SplitAnnexB(data []byte) [][]byte {
	var nalus [][]byte
	start := -1
	zeros := 0
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b == 0 {
			zeros++
			continue
		}
		if b == 1 && zeros >= 2 {
			if start >= 0 {
				end := i - zeros
				if end > start {
					nalus = append(nalus, data[start:end])
				}
			}
			start = i + 1
		}
		zeros = 0
	}

	if start >= 0 && start < len(data) {
		end := len(data)
		// 流尾部的 trailing_zero_8bits
		for end > start && data[end-1] == 0 {
			end--
		}
		if end > start {
			nalus = append(nalus, data[start:end])
		}
	}
	return nalus
}

// AppendNalu 以 Annex B 格式追加一个 NAL 单元，header 之后的负载插入防竞争字节。
func AppendNalu(dst []byte, header byte, payload []byte) []byte {
	dst = append(dst, StartCode...)
	dst = append(dst, header)
	return AppendEmulationPrevention(dst, payload)
}

// AppendEmulationPrevention 7.4.1: 在 0x0000 之后出现 0x00~0x03 时插入 0x03。
// rbsp 必须以 rbsp_trailing_bits 结尾（最后一个字节非零），否则尾部的 0x00
// 会被当成下一个起始码的一部分。
func AppendEmulationPrevention(dst []byte, rbsp []byte) []byte {
	zeros := 0
	for _, b := range rbsp {
		if zeros >= 2 && b <= 3 {
			dst = append(dst, 0x03)
			zeros = 0
		}
		dst = append(dst, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return dst
}

// RemoveEmulationPrevention 去除防竞争字节，返回 RBSP
func RemoveEmulationPrevention(data []byte) []byte {
	rbsp := make([]byte, 0, len(data))
	zeros := 0
	for i := 0; i < len(data); i++ {
		b := data[i]
		if zeros >= 2 && b == 0x03 {
			zeros = 0
			continue
		}
		rbsp = append(rbsp, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return rbsp
}
