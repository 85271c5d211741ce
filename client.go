// Copyright 2021 fangyousong(方友松). All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// 客户端实现(请求方)
//
// 每个请求的传输过程: 建连，写出一个数据帧，然后循环读8字节整数——
// 读到ack哨兵则再读8字节得到对端已收字节数(可上报进度)并继续等待，
// 读到非零值则视为响应长度，读完响应体后关闭连接
package nab

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sugawarayuuta/sonnet"
)

type ClientConfig struct {
	ConnectTimeout     time.Duration
	ReadTimeout        time.Duration //每个读阶段的超时限制
	TcpReadBufferSize  int           //内核socket读缓冲区大小
	TcpWriteBufferSize int           //内核socket写缓冲区大小
}

type Client struct {
	DefaultErrorHolder
	DefaultContext
	config     ClientConfig
	serverAddr string

	// 长传输过程中每收到一个ack帧回调一次，参数为对端已收到的字节数。
	// 可为nil
	OnProgress func(received uint64)
}

func NewClient(config ClientConfig, serverAddr string) (*Client, error) {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultReadTimeout
	}
	return &Client{config: config, serverAddr: serverAddr}, nil
}

// 发送一个JSON对象并返回解码后的响应
func (m *Client) DoRequest(request interface{}) (Request, error) {
	reqData, err := sonnet.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encode request fail, %s", err.Error())
	}
	respData, err := m.DoRequestData(reqData)
	if err != nil {
		return nil, err
	}
	var resp Request
	if err := sonnet.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("server sent malformed message")
	}
	return resp, nil
}

// 发送原始payload并返回原始响应payload
func (m *Client) DoRequestData(requestData []byte) ([]byte, error) {
	frame, err := CreateFrame(requestData)
	if err != nil {
		return nil, err
	}
	netConn, err := net.DialTimeout("tcp4", m.serverAddr, m.config.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect")
	}
	defer netConn.Close()
	tcpConn := netConn.(*net.TCPConn)
	tcpConn.SetKeepAlive(true)
	tcpConn.SetKeepAlivePeriod(time.Second * 15)
	if m.config.TcpReadBufferSize > 0 {
		tcpConn.SetReadBuffer(m.config.TcpReadBufferSize)
	}
	if m.config.TcpWriteBufferSize > 0 {
		tcpConn.SetWriteBuffer(m.config.TcpWriteBufferSize)
	}

	if _, err := tcpConn.Write(frame); err != nil {
		return nil, fmt.Errorf("send request fail, %s", err.Error())
	}

	head := make([]byte, LengthFieldSize)
	for {
		if err := m.readFull(tcpConn, head); err != nil {
			return nil, err
		}
		if !IsAck(head) {
			break
		}
		//ack帧: 后续8字节为对端已收到的字节数
		if err := m.readFull(tcpConn, head); err != nil {
			return nil, err
		}
		if m.OnProgress != nil {
			m.OnProgress(DecodeLength(head))
		}
	}

	length := DecodeLength(head)
	if length > MaxPayloadSize {
		return nil, ErrFraming
	}
	respData := make([]byte, length)
	if err := m.readFull(tcpConn, respData); err != nil {
		return nil, err
	}
	return respData, nil
}

func (m *Client) readFull(conn *net.TCPConn, buf []byte) error {
	conn.SetReadDeadline(time.Now().Add(m.config.ReadTimeout))
	if _, err := io.ReadFull(conn, buf); err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return ErrConnectionTimeout
		}
		return ErrPeerClosed
	}
	return nil
}
