// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"bytes"
	"encoding/json"
	"image/png"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cnotch/apirouter"
	"github.com/cnotch/vstream/config"
	"github.com/cnotch/vstream/network"
	"github.com/cnotch/vstream/stats"
)

var (
	buffers = sync.Pool{
		New: func() interface{} {
			return bytes.NewBuffer(make([]byte, 0, 1024*2))
		},
	}
)

var crossdomainxml = []byte(
	`<?xml version="1.0" ?><cross-domain-policy>
			<allow-access-from domain="*" />
			<allow-http-request-headers-from domain="*" headers="*"/>
		</cross-domain-policy>`)

func (s *Service) initApis(mux *http.ServeMux) {
	api := apirouter.NewForGRPC(
		// 系统信息类API
		apirouter.GET("/api/v1/server", s.onGetServerInfo),
		apirouter.GET("/api/v1/runtime", s.onGetRuntime),

		// 会话管理API
		apirouter.GET("/api/v1/sessions", s.onListSessions),
		apirouter.GET("/api/v1/sessions/{id=*}", s.onGetSessionInfo),
		apirouter.DELETE("/api/v1/sessions/{id=*}", s.onStopSession),
		apirouter.GET("/api/v1/snapshots/{id=*}", s.onGetSnapshot),
	)

	iterc := apirouter.ChainInterceptor(apirouter.PreInterceptor(localInterceptor))

	// api add to mux
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		if path.Base(r.URL.Path) == "crossdomain.xml" {
			w.Header().Set("Content-Type", "application/xml")
			w.Write(crossdomainxml)
			return
		}

		if iterc.PreHandle(w, r) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			api.ServeHTTP(w, r)
		}
	})
}

// 获取服务器信息
func (s *Service) onGetServerInfo(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	type server struct {
		Vendor   string `json:"vendor"`
		Name     string `json:"name"`
		Version  string `json:"version"`
		OS       string `json:"os"`
		Arch     string `json:"arch"`
		Mode     string `json:"mode"`
		Framing  string `json:"framing"`
		StartOn  string `json:"start_on"`
		Duration string `json:"duration"`
	}
	srv := server{
		Vendor:   config.Vendor,
		Name:     config.Name,
		Version:  config.Version,
		OS:       runtime.GOOS,
		Arch:     strings.ToUpper(runtime.GOARCH),
		Mode:     config.Mode(),
		Framing:  s.framing,
		StartOn:  stats.StartingTime.Format(time.RFC3339Nano),
		Duration: time.Since(stats.StartingTime).String(),
	}

	if err := jsonTo(w, &srv); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// 获取运行时信息
func (s *Service) onGetRuntime(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	const extraKey = "extra"

	type spc struct {
		SC int `json:"sessions"`
		PC int `json:"pending"` // 还有待取帧的会话
	}
	type rt struct {
		On        string            `json:"on"`
		Proc      stats.Proc        `json:"proc"`
		Sessions  spc               `json:"sessions"`
		Stream    stats.ConnsSample `json:"stream"`
		Websocket stats.ConnsSample `json:"websocket"`
		Decode    stats.FlowSample  `json:"decode"`
		Encode    stats.FlowSample  `json:"encode"`
		Extra     *stats.Runtime    `json:"extra,omitempty"`
	}
	sc, pc := sessionCount()

	info := rt{
		On:        time.Now().Format(time.RFC3339Nano),
		Proc:      stats.MeasureProc(),
		Sessions:  spc{sc, pc},
		Stream:    stats.StreamConns.GetSample(),
		Websocket: stats.WebsocketConns.GetSample(),
		Decode:    stats.DecodeFlow.GetSample(),
		Encode:    stats.EncodeFlow.GetSample(),
	}

	params := r.URL.Query()
	if strings.TrimSpace(params.Get(extraKey)) == "1" {
		extra := stats.MeasureRuntime()
		info.Extra = &extra
	}

	if err := jsonTo(w, &info); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Service) onListSessions(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	pageSize, pageToken, err := listParamers(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var token SID
	if pageToken != "" {
		if token, err = ParseSID(pageToken); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	count, infos := sessionInfos(token, pageSize)
	type sessionList struct {
		Total         int            `json:"total"`
		NextPageToken string         `json:"next_page_token"`
		Sessions      []*SessionInfo `json:"sessions,omitempty"`
	}

	list := &sessionList{
		Total:    count,
		Sessions: infos,
	}
	if len(infos) > 0 {
		list.NextPageToken = strconv.FormatUint(uint64(infos[len(infos)-1].ID), 10)
	}

	if err := jsonTo(w, list); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// sessionOf 从路径参数获取会话，不存在时返回 404
func sessionOf(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) *session {
	id, err := ParseSID(pathParams.ByName("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	sess := getSession(id)
	if sess == nil {
		http.NotFound(w, r)
	}
	return sess
}

func (s *Service) onGetSessionInfo(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	sess := sessionOf(w, r, pathParams)
	if sess == nil {
		return
	}

	if err := jsonTo(w, sess.Info()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Service) onStopSession(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	sess := sessionOf(w, r, pathParams)
	if sess == nil {
		return
	}

	sess.Close()
	w.WriteHeader(http.StatusOK)
}

// 最近一帧的 PNG 图像
func (s *Service) onGetSnapshot(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	sess := sessionOf(w, r, pathParams)
	if sess == nil {
		return
	}

	snap, ok := sess.sink.Snapshot()
	if !ok {
		http.Error(w, "no frame decoded", http.StatusNotFound)
		return
	}

	formatted := buffers.Get().(*bytes.Buffer)
	formatted.Reset()
	defer buffers.Put(formatted)

	if err := png.Encode(formatted, snap.Image); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Frame-Index", strconv.FormatInt(snap.Index, 10))
	w.Header().Set("X-Frame-Pts", strconv.FormatInt(snap.Pts, 10))
	w.Write(formatted.Bytes())
}

func jsonTo(w io.Writer, o interface{}) error {
	formatted := buffers.Get().(*bytes.Buffer)
	formatted.Reset()
	defer buffers.Put(formatted)

	body, err := json.Marshal(o)
	if err != nil {
		return err
	}

	if err := json.Indent(formatted, body, "", "\t"); err != nil {
		return err
	}

	if _, err := w.Write(formatted.Bytes()); err != nil {
		return err
	}
	return nil
}

func listParamers(params url.Values) (pageSize int, pageToken string, err error) {
	pageSizeStr := params.Get("page_size")
	pageSize = 20
	if pageSizeStr != "" {
		pageSize, err = strconv.Atoi(pageSizeStr)
		if err != nil {
			return pageSize, pageToken, err
		}
		if pageSize <= 0 {
			pageSize = 20
		}
	}
	pageToken = params.Get("page_token")
	return
}

// localInterceptor 只允许本机停止会话
func localInterceptor(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodDelete {
		return true
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && network.IsLocalhostIP(net.ParseIP(host)) {
		return true
	}

	http.Error(w, "访问被拒绝，只能在本机停止会话", http.StatusForbidden)
	return false
}

