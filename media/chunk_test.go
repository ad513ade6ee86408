// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker(t *testing.T) {
	c := newChunker(4, 3)

	tests := []struct {
		name string
		data []byte
		want [][]byte
	}{
		{"empty", nil, nil},
		{"short", []byte{1, 2}, [][]byte{{1, 2}}},
		{"exact", []byte{1, 2, 3, 4}, [][]byte{{1, 2, 3, 4}}},
		{"remainder", []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}, [][]byte{{1, 2, 3, 4}, {5, 6, 7, 8}, {9}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got [][]byte
			for chunk := range c.Chunks(tt.data) {
				got = append(got, append([]byte(nil), chunk...))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChunkerPadding(t *testing.T) {
	c := newChunker(4, 3)

	check := func(data []byte) {
		for chunk := range c.Chunks(data) {
			require.True(t, cap(chunk)-len(chunk) >= 3)
			assert.Equal(t, []byte{0, 0, 0}, chunk[len(chunk):len(chunk)+3])
		}
	}

	// 整块之后的短块，暂存区中残留的数据必须被清零
	check([]byte{9, 9, 9, 9, 9, 9})
	check([]byte{7})
	check([]byte{7})
	check([]byte{5, 5, 5, 5})
}

func TestChunkerStop(t *testing.T) {
	c := newChunker(2, 0)
	n := 0
	for range c.Chunks(make([]byte, 10)) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestExtractor(t *testing.T) {
	e := &fakeEngine{}
	parser, _ := e.NewParser("fake")
	x := &extractor{parser: parser}

	var units [][]byte
	for _, chunk := range [][]byte{{1, 2, 3}, {4, 5, 6, 7, 8, 9}} {
		for unit, err := range x.Units(chunk) {
			require.NoError(t, err)
			units = append(units, append([]byte(nil), unit...))
		}
	}
	assert.Equal(t, [][]byte{{1, 2, 3, 4}, {5, 6, 7, 8}}, units)

	unit, err := x.Flush()
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, unit)

	unit, err = x.Flush()
	require.NoError(t, err)
	assert.Nil(t, unit)
}

type stuckParser struct{ err error }

func (p stuckParser) Parse([]byte) (int, []byte, error) { return 0, nil, p.err }

func TestExtractorErrors(t *testing.T) {
	tests := []struct {
		name   string
		parser interface {
			Parse([]byte) (int, []byte, error)
		}
	}{
		{"invalid_count", &fakeParser{engine: &fakeEngine{badCount: true}}},
		{"no_progress", stuckParser{}},
		{"parser_error", stuckParser{err: errors.New("boom")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := &extractor{parser: tt.parser}
			var errs []error
			for unit, err := range x.Units([]byte{1, 2, 3}) {
				assert.Nil(t, unit)
				errs = append(errs, err)
			}
			require.Len(t, errs, 1)
			assert.True(t, errors.Is(errs[0], ErrParse))
		})
	}
}
