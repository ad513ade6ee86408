// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build ffmpeg

package main

import _ "github.com/cnotch/vstream/av/codec/ffmpeg"
