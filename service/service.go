// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/cnotch/scheduler"
	"github.com/cnotch/vstream/config"
	"github.com/cnotch/vstream/network"
	"github.com/cnotch/vstream/stats"
	"github.com/cnotch/xlog"
	"github.com/kelindar/tcp"
)

const (
	defaultStreamPort = 17098
	defaultHTTPPort   = 17099
)

// Service 接收服务对象(服务的入口)
type Service struct {
	context context.Context
	cancel  context.CancelFunc
	logger  *xlog.Logger
	http    *http.Server
	stream  *tcp.Server
	seed    uint32 // 会话序号种子
	sink    FrameSink
	decoder config.DecoderConfig
	framing string

	lastDecode stats.FlowSample
	lastEncode stats.FlowSample
}

// NewService 创建服务
func NewService(ctx context.Context, l *xlog.Logger) (s *Service, err error) {
	ctx, cancel := context.WithCancel(ctx)
	s = &Service{
		context: ctx,
		cancel:  cancel,
		logger:  l,
		http:    new(http.Server),
		stream:  new(tcp.Server),
		decoder: config.Decoder(),
		framing: config.Framing(),
	}

	// 设置 http 的Handler
	mux := http.NewServeMux()
	if config.Profile() {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	s.initApis(mux)
	s.initHTTPStreams(mux)
	s.http.Handler = mux

	// 设置码流 AcceptHandler
	s.stream.OnAccept = s.onAcceptConn

	// 定时输出统计
	scheduler.PeriodFunc(config.StatsInterval(), config.StatsInterval(), s.logStats,
		"The task of logging decode and encode statistics")

	s.logger.Info("service configured")
	return s, nil
}

// SetSink 设置解码帧的消费者，默认只保留最近一帧供快照
func (s *Service) SetSink(sink FrameSink) {
	s.sink = sink
}

// onAcceptConn 当新连接接入时触发
func (s *Service) onAcceptConn(c net.Conn) {
	s.startSession(c, TCPSession, stats.StreamConns)
}

func (s *Service) startSession(c net.Conn, st SessionType, conns stats.Conns) *session {
	conns.Add()
	sess := newSession(NewSID(st, &s.seed), c, s.framing, s.decoder, conns, s.sink, s.logger)
	regist(sess)
	go sess.process()
	return sess
}

// Listen 启动服务，阻塞直到收到退出信号
func (s *Service) Listen() (err error) {
	defer s.Close()
	s.hookSignals()

	streamAddr, err := network.ParseAddr(config.Addr(), defaultStreamPort)
	if err != nil {
		return err
	}
	httpAddr, err := network.ParseAddr(config.HTTPAddr(), defaultHTTPPort)
	if err != nil {
		return err
	}

	s.logger.Infof("starting the stream listener, addr = %s.", streamAddr.String())
	streamL, err := net.Listen("tcp", streamAddr.String())
	if err != nil {
		return err
	}
	s.logger.Infof("starting the http listener, addr = %s.", httpAddr.String())
	httpL, err := net.Listen("tcp", httpAddr.String())
	if err != nil {
		streamL.Close()
		return err
	}

	s.logger.Infof("service started(%s).", config.Version)
	return s.serve(streamL, httpL)
}

// serve 在两个监听器上服务，直到 context 取消或任一监听器出错
func (s *Service) serve(streamL, httpL net.Listener) error {
	errc := make(chan error, 2)
	go func() { errc <- s.stream.Serve(streamL) }()
	go func() { errc <- s.http.Serve(httpL) }()

	var err error
	select {
	case <-s.context.Done():
	case err = <-errc:
	}
	streamL.Close()
	s.http.Close()
	return err
}

// Close 关闭服务
func (s *Service) Close() {
	if s.cancel != nil {
		s.cancel()
	}

	// 停止计划任务
	jobs := scheduler.Jobs()
	for _, job := range jobs {
		job.Cancel()
	}

	// 关闭全部会话
	closeAll()
}

func (s *Service) logStats() {
	decode := stats.DecodeFlow.GetSample()
	encode := stats.EncodeFlow.GetSample()
	dd, ed := decode.Sub(s.lastDecode), encode.Sub(s.lastEncode)
	s.lastDecode, s.lastEncode = decode, encode

	proc := stats.MeasureProc()
	sc, pc := sessionCount()
	s.logger.Info("statistics",
		xlog.F("cpu", proc.CPU),
		xlog.F("priv_kb", proc.Priv),
		xlog.F("sessions", sc),
		xlog.F("pending_sessions", pc),
		xlog.F("decode_in_kb", dd.InBytes/1024),
		xlog.F("decode_frames", dd.OutFrames),
		xlog.F("encode_frames", ed.InFrames),
		xlog.F("encode_out_kb", ed.OutBytes/1024))
}

// hookSignals 处理退出信号
func (s *Service) hookSignals() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for sig := range c {
			s.onSignal(sig)
		}
	}()
}

// onSignal 收到系统信号时调用
func (s *Service) onSignal(sig os.Signal) {
	switch sig {
	case syscall.SIGTERM:
		fallthrough
	case syscall.SIGINT:
		s.logger.Warn(fmt.Sprintf("received signal %s, exiting...", sig.String()))
		s.Close()
	}
}
