// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"sort"
	"sync"
)

// 全局变量
var (
	sessions sync.Map // 接入会话集合 SID->*session
)

// regist 注册会话
func regist(s *session) {
	sessions.Store(s.id, s)
}

// unregist 取消注册
func unregist(s *session) {
	if si, ok := sessions.Load(s.id); ok && si == s {
		sessions.Delete(s.id)
	}
}

// closeAll 取消全部注册的会话并关闭
func closeAll() {
	sessions.Range(func(key, value interface{}) bool {
		sessions.Delete(key)
		value.(*session).Close()
		return true
	})
}

// getSession 获取 id 对应的会话
func getSession(id SID) *session {
	if si, ok := sessions.Load(id); ok {
		return si.(*session)
	}
	return nil
}

// sessionCount 会话数量和其中还有待取帧的会话数
func sessionCount() (sc, pc int) {
	sessions.Range(func(key, value interface{}) bool {
		sc++
		if value.(*session).pending() > 0 {
			pc++
		}
		return true
	})
	return
}

// sessionInfos 按 ID 排序分页返回会话信息，pageToken 为上一页最后一个 ID
func sessionInfos(pageToken SID, pageSize int) (int, []*SessionInfo) {
	var infos []*SessionInfo
	count := 0
	sessions.Range(func(key, value interface{}) bool {
		count++
		if key.(SID) > pageToken {
			infos = append(infos, value.(*session).Info())
		}
		return true
	})

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ID < infos[j].ID
	})

	if pageSize > len(infos) {
		return count, infos
	}
	return count, infos[:pageSize]
}
