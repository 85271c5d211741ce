// Copyright 2021 fangyousong(方友松). All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//协议实现的核心代码
//
//线路格式(所有整数均为大端序无符号):
//  数据帧: 8字节长度L + L字节UTF-8编码的JSON payload
//  ack帧:  8个零字节 + 8字节"已收到字节数"
//长度0保留给ack哨兵，真实数据帧的payload禁止为空
package nab

import (
	"encoding/binary"
	"fmt"
)

// 将帧长度(或ack计数)编码为8字节大端序
func EncodeLength(n uint64) []byte {
	ret := make([]byte, LengthFieldSize)
	binary.BigEndian.PutUint64(ret, n)
	return ret
}

func DecodeLength(bts []byte) uint64 {
	return binary.BigEndian.Uint64(bts)
}

// 8字节全零即为ack哨兵
func IsAck(bts []byte) bool {
	for _, v := range bts[:LengthFieldSize] {
		if v != 0 {
			return false
		}
	}
	return true
}

// 根据payload创建一个用于tcp发送的网络数据帧
func CreateFrame(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if uint64(len(payload)) > MaxPayloadSize {
		return nil, fmt.Errorf("payload is too large, must be <= %d bytes", MaxPayloadSize)
	}
	ret := make([]byte, 0, LengthFieldSize+len(payload))
	ret = append(ret, EncodeLength(uint64(len(payload)))...)
	ret = append(ret, payload...)
	return ret, nil
}

// 创建一个ack帧: 哨兵 + 已收到字节数
func CreateAckFrame(count uint64) []byte {
	ret := make([]byte, 0, LengthFieldSize*2)
	ret = append(ret, EncodeLength(0)...)
	ret = append(ret, EncodeLength(count)...)
	return ret
}

// 向非阻塞fd同步写出一个数据帧
func writeFrameFd(fd int, payload []byte) error {
	data, err := CreateFrame(payload)
	if err != nil {
		return err
	}
	return fdWriteAll(fd, data)
}

func writeAckFd(fd int, count uint64) error {
	return fdWriteAll(fd, CreateAckFrame(count))
}
