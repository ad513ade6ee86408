// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlow(t *testing.T) {
	totalFlow := NewFlow()
	sub1 := NewChildFlow(totalFlow)
	sub2 := NewChildFlow(totalFlow)

	sub1.AddIn(100, 1)
	assert.Equal(t, FlowSample{InBytes: 100, InFrames: 1}, sub1.GetSample())

	sub2.AddIn(200, 2)
	sub2.AddOut(4096, 1)
	assert.Equal(t, FlowSample{InBytes: 300, InFrames: 3, OutBytes: 4096, OutFrames: 1}, totalFlow.GetSample())
	assert.Equal(t, FlowSample{InBytes: 200, InFrames: 2, OutBytes: 4096, OutFrames: 1}, sub2.GetSample())
}

func TestFlowConcurrent(t *testing.T) {
	total := NewFlow()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			child := NewChildFlow(total)
			for j := 0; j < 1000; j++ {
				child.AddOut(3, 1)
			}
		}()
	}
	wg.Wait()

	sample := total.GetSample()
	assert.Equal(t, int64(8*3000), sample.OutBytes)
	assert.Equal(t, int64(8000), sample.OutFrames)
}

func TestFlowSampleSub(t *testing.T) {
	prev := FlowSample{InBytes: 10, OutFrames: 1}
	cur := FlowSample{InBytes: 25, OutFrames: 4, InFrames: 2}
	assert.Equal(t, FlowSample{InBytes: 15, OutFrames: 3, InFrames: 2}, cur.Sub(prev))

	var sum FlowSample
	sum.Add(prev)
	sum.Add(cur)
	assert.Equal(t, int64(35), sum.InBytes)
}
