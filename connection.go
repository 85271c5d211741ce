// Copyright 2021 fangyousong(方友松). All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//connection与per-connection worker的实现
package nab

import (
	"fmt"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sugawarayuuta/sonnet"
)

// 一条已接受的tcp连接。socket的读事件由multiplexer的事件循环驱动，
// 读到的字节经gate转交给worker goroutine；响应和ack的写出都发生在
// 这条连接自己的fd上，互不交叉(worker写响应时事件循环绝不写ack，
// ack仅在worker阻塞于gate.Read期间发出)
type Connection struct {
	DefaultErrorHolder
	DefaultContext
	fd           int
	remoteAddr   string
	gate         *StreamGate
	server       *Server
	newTime      time.Time
	closedMark   uint32
	brokenMark   uint32 //ack写失败后置位，后续读写出错时直接放弃
	releasedMark uint32 //fd已被close
}

func newConnection(fd int, remoteAddr string, server *Server) *Connection {
	ret := &Connection{
		fd:         fd,
		remoteAddr: remoteAddr,
		server:     server,
		newTime:    time.Now(),
	}
	ret.gate = NewStreamGate(ret.writeAck, server.config.AckInterval)
	return ret
}

func (m *Connection) RemoteAddr() string {
	return m.remoteAddr
}

func (m *Connection) Closed() bool {
	return atomic.LoadUint32(&m.closedMark) == 1
}

// 由gate在生产者线程调用，尽力而为。失败不重试，不能阻塞事件循环
func (m *Connection) writeAck(count uint64) error {
	if atomic.LoadUint32(&m.brokenMark) == 1 {
		return ErrWriteFailed
	}
	if err := writeAckFd(m.fd, count); err != nil {
		atomic.StoreUint32(&m.brokenMark, 1)
		return err
	}
	m.server.statis.AddCount(MethodUnknown, Count{AcksSent: 1, BytesSent: int64(LengthFieldSize * 2)})
	return nil
}

// 回收fd的资格，保证syscall.Close恰好执行一次。
// 只有worker结束后的teardown路径(以及server关闭)会真正close fd，
// 事件循环发现对端关闭时只是停止poll，fd保持打开直到worker退出
func (m *Connection) release() bool {
	return atomic.CompareAndSwapUint32(&m.releasedMark, 0, 1)
}

// 标记关闭。fd本身在worker teardown之后由multiplexer关闭
func (m *Connection) close(err error) {
	if !atomic.CompareAndSwapUint32(&m.closedMark, 0, 1) {
		return
	}
	if err != nil {
		m.err = err
	} else {
		m.err = fmt.Errorf("unknown")
	}
	if LogClosing {
		log.Logf("connection closed, remote addr: %s, %s", m.remoteAddr, m.err.Error())
	}
	m.gate.Fail(m.err)
}

// worker主体: 一条连接上顺序执行一次协议(无pipelining)，
// 之后请求multiplexer注销并关闭socket。
// 任何framing/decode/超时错误只终止本连接，对事件循环和其他连接无影响
func (m *Connection) run() {
	defer m.server.mux.requestTeardown(m)

	recvTime := time.Now()
	method := MethodUnknown
	status := StatusError
	var response interface{}

	payload, err := m.readRequest()
	if err == nil {
		var req Request
		if e := sonnet.Unmarshal(payload, &req); e != nil {
			//解码失败: method="?", status="ERROR", 不回写响应
			preview := payload
			if len(preview) > 256 {
				preview = preview[:256]
			}
			log.Errorf("decode request from %s fail, data: %s", m.remoteAddr, string(preview))
			m.server.statis.AddCount(MethodUnknown, Count{Errors: 1})
		} else {
			method, status, response = m.server.handler.Handle(recvTime, req)
		}
	} else {
		m.server.statis.AddCount(MethodUnknown, Count{Errors: 1})
	}
	m.server.statis.AddCount(method, Count{RequestsReceived: 1})

	if response != nil {
		if e := m.writeResponse(method, response); e != nil {
			log.Errorf("write response to %s fail, %s", m.remoteAddr, e.Error())
			m.close(e)
		}
	}

	m.server.accessLog.Write(fmt.Sprintf("%s\t%s\t%s\t%s\n", m.remoteAddr, recvTime.Format(time.RFC3339), method, status))
	m.server.statis.AddMeasure(method, 1, time.Since(recvTime))
}

// 读取一个完整请求帧: 8字节长度 + payload
func (m *Connection) readRequest() ([]byte, error) {
	timeout := m.server.config.ReadTimeout
	lenBts, err := m.gate.Read(uint64(LengthFieldSize), timeout)
	if err != nil {
		return nil, err
	}
	length := DecodeLength(lenBts)
	//长度0保留给ack哨兵，server侧收到即为协议错误
	if length == 0 || length > MaxPayloadSize {
		return nil, ErrFraming
	}
	payload, err := m.gate.Read(length, timeout)
	if err != nil {
		return nil, err
	}
	m.server.statis.AddCount(MethodUnknown, Count{BytesReceived: int64(LengthFieldSize) + int64(length)})
	return payload, nil
}

func (m *Connection) writeResponse(method string, response interface{}) error {
	if atomic.LoadUint32(&m.brokenMark) == 1 {
		return ErrWriteFailed
	}
	data, err := sonnet.Marshal(response)
	if err != nil {
		return fmt.Errorf("encode response fail, %s", err.Error())
	}
	if err := writeFrameFd(m.fd, data); err != nil {
		return err
	}
	m.server.statis.AddCount(method, Count{ResponsesSent: 1, BytesSent: int64(LengthFieldSize + len(data))})
	return nil
}

// 事件循环对就绪socket执行一次有界非阻塞recv的结果处理
func (m *Connection) onReadable(buf []byte) (alive bool) {
	for {
		n, err := syscall.Read(m.fd, buf)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			if err == syscall.EAGAIN {
				return true
			}
			m.gate.Fail(fmt.Errorf("recv fail, %s", err.Error()))
			return false
		}
		if n == 0 {
			//对端关闭
			m.gate.Fail(ErrPeerClosed)
			return false
		}
		m.gate.Append(buf[:n])
		return true
	}
}
