// Copyright 2021 fangyousong(方友松). All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package nab

import "time"

//系统常量定义
const (
	LengthFieldSize int    = 8                //帧长度前缀的字节数，大端序无符号整数
	MaxPayloadSize  uint64 = 16 * 1024 * 1024 //payload最大字节数
	RecvBufSize     int    = 4096             //事件循环单次非阻塞recv的缓冲区大小

	//status取值，用于请求日志
	StatusOK    string = "OK"
	StatusError string = "ERROR"

	//未能从请求中解出method时的占位
	MethodUnknown string = "?"

	DefaultReadTimeout    time.Duration = time.Second * 5        //gate.Read的默认超时
	DefaultAckInterval    time.Duration = time.Millisecond * 500 //相邻两个ack帧之间的最小间隔
	DefaultConnectTimeout time.Duration = time.Second * 3
	PollTimeoutMs         int           = 250 //unix.Poll的等待时长，保证对关闭信号的响应速度
)
