// Copyright 2021 fangyousong(方友松). All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//单线程readiness multiplexer: 监听socket与所有连接socket的可读事件
//统一由一个事件循环poll，就绪后做一次有界非阻塞recv并转交该连接的gate
package nab

import (
	"syscall"

	"golang.org/x/sys/unix"
)

type Multiplexer struct {
	listenFd    int
	server      *Server
	conns       map[int32]*Connection //仅由事件循环goroutine读写
	teardownQ   chan *Connection      //worker线程通过消息请求注销，避免跨线程改表
	closeNotify chan int
	closeDone   chan struct{}
}

func newMultiplexer(listenFd int, server *Server, closeNotify chan int) *Multiplexer {
	return &Multiplexer{
		listenFd:    listenFd,
		server:      server,
		conns:       make(map[int32]*Connection),
		teardownQ:   make(chan *Connection, 128),
		closeNotify: closeNotify,
		closeDone:   make(chan struct{}),
	}
}

// worker请求注销并关闭自己的连接。注销本身永远发生在事件循环线程内。
// 传递*Connection而不是裸fd: fd号会被内核复用，用conn身份做校验
func (m *Multiplexer) requestTeardown(conn *Connection) {
	select {
	case m.teardownQ <- conn:
	case <-m.closeNotify:
		//事件循环已退出，就地回收
		conn.close(ErrPeerClosed)
		if conn.release() {
			syscall.Close(conn.fd)
		}
		m.server.removeConn(conn.remoteAddr)
	}
}

func (m *Multiplexer) loop() {
	defer close(m.closeDone)
	recvBuf := make([]byte, RecvBufSize)
	pollArgs := make([]unix.PollFd, 0, 64)
	for {
		select {
		case <-m.closeNotify:
			m.shutdown()
			return
		default:
		}
		m.drainTeardown()

		pollArgs = pollArgs[:0]
		pollArgs = append(pollArgs, unix.PollFd{Fd: int32(m.listenFd), Events: unix.POLLIN})
		for fd := range m.conns {
			pollArgs = append(pollArgs, unix.PollFd{Fd: fd, Events: unix.POLLIN | unix.POLLERR})
		}

		//短超时保证进程对关闭信号保持响应
		n, err := unix.Poll(pollArgs, PollTimeoutMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			log.Errorf("poll fail, %s", err.Error())
			continue
		}
		if n <= 0 {
			continue
		}

		for i := 1; i < len(pollArgs); i++ {
			if pollArgs[i].Revents == 0 {
				continue
			}
			conn, ok := m.conns[pollArgs[i].Fd]
			if !ok {
				continue
			}
			if !conn.onReadable(recvBuf) {
				m.deregister(pollArgs[i].Fd)
			}
		}

		if pollArgs[0].Revents != 0 {
			m.accept()
		}
	}
}

func (m *Multiplexer) drainTeardown() {
	for {
		select {
		case conn := <-m.teardownQ:
			m.unregister(conn)
		default:
			return
		}
	}
}

func (m *Multiplexer) accept() {
	for {
		connFd, sa, err := syscall.Accept(m.listenFd)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			if err != syscall.EAGAIN {
				log.Errorf("accept fail, %s", err.Error())
			}
			return
		}
		if err := fdSetNonblock(connFd); err != nil {
			log.Errorf("set nonblock fail, %s", err.Error())
			syscall.Close(connFd)
			return
		}
		conn := newConnection(connFd, sockaddrString(sa), m.server)
		m.conns[int32(connFd)] = conn
		m.server.addConn(conn)
		log.Logf("accepted new connection: %s", conn.remoteAddr)
		go conn.run()
		return
	}
}

// 对端关闭或recv出错时仅把fd移出poll集合，socket本身保持打开，
// 留到worker的teardown请求时再关闭。立即close会让内核复用fd号，
// 仍在handler中的worker就可能把响应写到后来者的连接上
func (m *Multiplexer) deregister(fd int32) {
	delete(m.conns, fd)
}

// 注销一条连接并关闭socket。只在worker结束后经teardownQ到达这里，
// 此时该fd上不会再有任何写入。按conn身份校验，fd号可能已归属新连接
func (m *Multiplexer) unregister(conn *Connection) {
	fd := int32(conn.fd)
	if cur, ok := m.conns[fd]; ok && cur == conn {
		delete(m.conns, fd)
	}
	conn.close(ErrPeerClosed)
	if conn.release() {
		syscall.Close(conn.fd)
	}
	m.server.removeConn(conn.remoteAddr)
}

func (m *Multiplexer) shutdown() {
	for _, conn := range m.conns {
		conn.close(ErrPeerClosed)
		if conn.release() {
			syscall.Close(conn.fd)
		}
	}
	m.conns = make(map[int32]*Connection)
	syscall.Close(m.listenFd)
}
