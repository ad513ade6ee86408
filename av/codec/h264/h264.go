// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package h264

/*
 * Table 7-1 – NAL unit type codes, syntax element categories, and NAL unit type classes in
 * T-REC-H.264-201704
 */
// H264 NAL 单元类型
const (
	NalUnspecified = 0
	NalSlice       = 1  // 不分区非IDR图像的片
	NalDpa         = 2  // 片分区A
	NalDpb         = 3  // 片分区B
	NalDpc         = 4  // 片分区C
	NalIdrSlice    = 5  // IDR图像中的片（I帧）
	NalSei         = 6  // 补充增强信息单元
	NalSps         = 7  // 序列参数集
	NalPps         = 8  // 图像参数集
	NalAud         = 9  // 分界符
	NalEndSequence = 10 // 序列结束
	NalEndStream   = 11 // 码流结束
	NalFillerData  = 12 // 填充
	NalSpsExt      = 13
	NalPrefix      = 14
	NalSubSps      = 15
	NalDps         = 16

	NalTypeBitmask = 0x1F
)

// RFC 6184 RTP 封装使用的 NAL 类型
const (
	NalStapaInRtp = 24 // 单时间聚合包
	NalFuAInRtp   = 28 // 分片单元
)

// NalType 返回 NAL 头中的单元类型
func NalType(header byte) byte {
	return header & NalTypeBitmask
}

// IsSps .
func IsSps(nt byte) bool {
	return nt&NalTypeBitmask == NalSps
}

// IsPps .
func IsPps(nt byte) bool {
	return nt&NalTypeBitmask == NalPps
}

// IsIdrSlice .
func IsIdrSlice(nt byte) bool {
	return nt&NalTypeBitmask == NalIdrSlice
}

// IsVCL 判断是否视频编码层(VCL)单元
func IsVCL(nt byte) bool {
	t := nt & NalTypeBitmask
	return t >= NalSlice && t <= NalIdrSlice
}

// startsAccessUnit 7.4.1.2.3: 这些类型出现在主编码图像的第一个 VCL 单元之前，
// 一旦当前访问单元已经含有 VCL 单元，它们开始一个新的访问单元
func startsAccessUnit(nt byte) bool {
	switch nt & NalTypeBitmask {
	case NalAud, NalSps, NalPps, NalSei, NalPrefix, NalSubSps, 17, 18:
		return true
	}
	return false
}
