// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stats

import (
	"runtime"
	"time"

	"github.com/kelindar/process"
)

// StartingTime 进程启动时间
var StartingTime = time.Now()

// Proc 进程信息统计
type Proc struct {
	CPU    float64 `json:"cpu"`    // cpu使用情况
	Priv   int32   `json:"priv"`   // 私有内存 KB
	Virt   int32   `json:"virt"`   // 虚拟内存 KB
	Uptime int32   `json:"uptime"` // 运行时间 S
}

// Runtime Go 运行时统计
type Runtime struct {
	Goroutines int32   `json:"goroutines"`
	HeapInuse  int32   `json:"heap_inuse"` // KB
	HeapAlloc  int32   `json:"heap_alloc"` // KB
	Sys        int32   `json:"sys"`        // KB
	NumGC      uint32  `json:"num_gc"`
	GCCPU      float64 `json:"gc_cpu"`
}

// MeasureProc 获取进程信息
func MeasureProc() (p Proc) {
	defer func() { recover() }()

	var memoryPriv, memoryVirtual int64
	var cpu float64
	process.ProcUsage(&cpu, &memoryPriv, &memoryVirtual)
	return Proc{
		CPU:    cpu,
		Priv:   toKB(uint64(memoryPriv)),
		Virt:   toKB(uint64(memoryVirtual)),
		Uptime: int32(time.Since(StartingTime).Seconds()),
	}
}

// MeasureRuntime 获取运行时信息
func MeasureRuntime() Runtime {
	var memory runtime.MemStats
	runtime.ReadMemStats(&memory)

	return Runtime{
		Goroutines: int32(runtime.NumGoroutine()),
		HeapInuse:  toKB(memory.HeapInuse),
		HeapAlloc:  toKB(memory.HeapAlloc),
		Sys:        toKB(memory.Sys),
		NumGC:      memory.NumGC,
		GCCPU:      memory.GCCPUFraction,
	}
}

// toKB 转换成 KB，避免 int32 溢出
func toKB(v uint64) int32 {
	return int32(v / 1024)
}
