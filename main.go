// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cnotch/scheduler"
	_ "github.com/cnotch/vstream/av/codec/zyuv"
	"github.com/cnotch/vstream/config"
	"github.com/cnotch/vstream/service"
	"github.com/cnotch/xlog"
)

func main() {
	// 初始化配置
	config.InitConfig()
	// 初始化全局计划任务
	scheduler.SetPanicHandler(func(job *scheduler.ManagedJob, r interface{}) {
		xlog.Errorf("scheduler task panic. tag: %v, recover: %v", job.Tag, r)
	})

	if config.Mode() == config.ModeSend {
		send()
		return
	}

	// Start new service
	svc, err := service.NewService(context.Background(), xlog.L())
	if err != nil {
		xlog.L().Panic(err.Error())
	}

	// Listen and serve
	if err = svc.Listen(); err != nil {
		xlog.L().Panic(err.Error())
	}
}

// send 向接收端发送彩条测试图像
func send() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := service.RunSender(ctx, config.Target(), config.Encoder(),
		config.Framing(), config.MTU(), config.Frames(), xlog.L())
	if err != nil && err != context.Canceled {
		xlog.Errorf("send stream failed: %s", err.Error())
		os.Exit(1)
	}
}
