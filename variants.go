// Copyright 2021 fangyousong(方友松). All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package nab

//系统变量定义
var (
	LogClosing bool = true //connection关闭的时候记录日志

	ErrFraming           error = &Error{Code: 100, Message: "malformed frame"}
	ErrDecode            error = &Error{Code: 101, Message: "payload decode fail"}
	ErrConnectionTimeout error = &Error{Code: 102, Message: "connection timed out"}
	ErrPeerClosed        error = &Error{Code: 103, Message: "connection closed by peer"}
	ErrWriteFailed       error = &Error{Code: 104, Message: "write fail"}
	ErrEmptyPayload      error = &Error{Code: 105, Message: "empty payload not allowed"}
	ErrRequestTimeout    error = &Error{Code: 106, Message: "request timeout"}
	ErrUnknown           error = &Error{Code: 107, Message: "unknown"}
)
