// Copyright 2021 fangyousong(方友松). All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//处理器(Handler)定义
package nab

import "time"

// 解码后的请求，开放式key/value结构。核心代码不解释其中的字段，
// method的校验与路由由RequestHandler的实现方负责
type Request map[string]interface{}

func (m Request) StringField(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// 请求处理器接口。worker解码出请求后调用Handle，返回
// (method名, status, 响应对象)。响应对象为nil表示不回写任何响应。
// method与status仅用于请求日志与统计
type RequestHandler interface {
	Handle(tm time.Time, request Request) (method string, status string, response interface{})
}
