// Copyright 2021 fangyousong(方友松). All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//StreamGate: 连接上非阻塞事件循环与阻塞式消费者之间的同步桥
package nab

import (
	"sync"
	"time"
)

// 从生产者线程回写ack帧的函数，写失败由connection自行记录，gate不重试
type AckWriter func(count uint64) error

// 每个连接一个StreamGate。生产者(事件循环)通过Append追加字节，
// 消费者(connection worker)通过Read阻塞等待恰好n个字节。
// 同一时刻至多一个未完成的Read(协议严格串行)，唤醒通过容量为1的
// signal通道完成: 等待目标在持锁状态下设置，Append补位的signal会被
// 缓冲，因此不存在丢失唤醒的窗口
type StreamGate struct {
	lock        sync.Mutex
	buf         []byte
	off         int //buf中已被消费的前缀长度
	target      int //当前Read等待的字节数，0表示无人等待
	waiting     bool
	signal      chan struct{}
	err         error
	ackWriter   AckWriter
	ackInterval time.Duration
	lastAck     time.Time
	acksSent    int64
}

func NewStreamGate(ackWriter AckWriter, ackInterval time.Duration) *StreamGate {
	if ackInterval <= 0 {
		ackInterval = DefaultAckInterval
	}
	return &StreamGate{
		signal:      make(chan struct{}, 1),
		ackWriter:   ackWriter,
		ackInterval: ackInterval,
	}
}

// 仅由事件循环线程调用，绝不阻塞。
// 如果等待中的消费者凑够了字节则唤醒它；否则在距上一个ack超过
// notify间隔时回写一个ack帧(尽力而为，失败即放弃)
func (m *StreamGate) Append(chunk []byte) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.err != nil {
		return
	}
	m.buf = append(m.buf, chunk...)
	buffered := len(m.buf) - m.off
	if !m.waiting {
		return
	}
	if buffered >= m.target {
		m.waiting = false
		m.target = 0
		select {
		case m.signal <- struct{}{}:
		default:
		}
		return
	}
	if m.ackWriter != nil && time.Since(m.lastAck) >= m.ackInterval {
		m.lastAck = time.Now()
		if err := m.ackWriter(uint64(buffered)); err == nil {
			m.acksSent++
		}
	}
}

// 生产者侧宣告连接失效(对端关闭、recv出错)，唤醒可能阻塞中的消费者
func (m *StreamGate) Fail(err error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.err == nil {
		if err == nil {
			err = ErrUnknown
		}
		m.err = err
	}
	if m.waiting {
		m.waiting = false
		m.target = 0
		select {
		case m.signal <- struct{}{}:
		default:
		}
	}
}

// 仅由connection worker线程调用。缓冲区中已有n字节则立即返回，
// 否则阻塞直到Append凑够或超时。超时返回ErrConnectionTimeout，
// 已缓冲而未被消费的字节保持原样
func (m *StreamGate) Read(n uint64, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	var timer *time.Timer
	m.lock.Lock()
	for {
		if uint64(len(m.buf)-m.off) >= n {
			//拷贝交付，内部缓冲区随后会被生产者复用
			ret := make([]byte, n)
			copy(ret, m.buf[m.off:m.off+int(n)])
			m.off += int(n)
			if m.off == len(m.buf) {
				m.buf = m.buf[:0]
				m.off = 0
			}
			m.lock.Unlock()
			if timer != nil {
				timer.Stop()
			}
			return ret, nil
		}
		if m.err != nil {
			err := m.err
			m.lock.Unlock()
			if timer != nil {
				timer.Stop()
			}
			return nil, err
		}
		//目标在持锁状态下设置，关闭丢失唤醒的窗口
		m.target = int(n)
		m.waiting = true
		m.lastAck = time.Now()
		m.lock.Unlock()

		if timer == nil {
			timer = time.NewTimer(timeout)
		}
		select {
		case <-m.signal:
			m.lock.Lock()
		case <-timer.C:
			m.lock.Lock()
			m.waiting = false
			m.target = 0
			select {
			case <-m.signal:
			default:
			}
			m.lock.Unlock()
			return nil, ErrConnectionTimeout
		}
	}
}

// 当前已缓冲未消费的字节数
func (m *StreamGate) Buffered() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.buf) - m.off
}

func (m *StreamGate) AcksSent() int64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.acksSent
}
