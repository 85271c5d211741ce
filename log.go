package nab

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/truexf/goutil"
)

type Logger interface {
	Log(s string)
	Logf(format string, args ...interface{})
	Warn(s string)
	Warnf(format string, args ...interface{})
	Error(s string)
	Errorf(format string, args ...interface{})
}

type DefaultLogger struct {
}

func (m *DefaultLogger) Log(s string) {
	fmt.Print(s)
	if len(s) == 0 || s[len(s)-1] != '\n' {
		fmt.Println("")
	}
}
func (m *DefaultLogger) Logf(format string, args ...interface{}) {
	s := fmt.Sprintf(format, args...)
	if len(s) == 0 || s[len(s)-1] != '\n' {
		s += "\n"
	}
	fmt.Print(s)
}
func (m *DefaultLogger) Warn(s string) {
	fmt.Print(s)
	if len(s) == 0 || s[len(s)-1] != '\n' {
		fmt.Println("")
	}
}
func (m *DefaultLogger) Warnf(format string, args ...interface{}) {
	m.Logf(format, args...)
}
func (m *DefaultLogger) Error(s string) {
	os.Stderr.WriteString(s)
	if len(s) == 0 || s[len(s)-1] != '\n' {
		os.Stderr.WriteString("\n")
	}
}
func (m *DefaultLogger) Errorf(format string, args ...interface{}) {
	s := fmt.Sprintf(format, args...)
	if len(s) == 0 || s[len(s)-1] != '\n' {
		s += "\n"
	}
	os.Stderr.WriteString(s)
}

var log Logger = &DefaultLogger{}

func SetLogger(logger Logger) {
	log = logger
}

// 请求日志。worker在写响应之后推入一行日志，由独立的goroutine异步落盘，
// 避免磁盘IO出现在协议处理的关键路径上
type AccessLog struct {
	file        *os.File
	alsoPrint   bool
	queue       *goutil.LinkedList
	notify      chan struct{}
	closeNotify chan struct{}
	closedMark  uint32
	closeDone   chan struct{}
}

func NewAccessLog(fileName string, alsoPrint bool) (*AccessLog, error) {
	f, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file fail, %s", err.Error())
	}
	ret := &AccessLog{
		file:        f,
		alsoPrint:   alsoPrint,
		queue:       goutil.NewLinkedList(true),
		notify:      make(chan struct{}, 1),
		closeNotify: make(chan struct{}),
		closeDone:   make(chan struct{}),
	}
	go ret.writeLoop()
	return ret, nil
}

func (m *AccessLog) Write(line string) {
	if atomic.LoadUint32(&m.closedMark) == 1 {
		return
	}
	m.queue.PushTail(line, true)
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *AccessLog) writeLoop() {
	defer close(m.closeDone)
	for {
		select {
		case <-m.notify:
			m.drain()
		case <-m.closeNotify:
			m.drain()
			return
		}
	}
}

func (m *AccessLog) drain() {
	for {
		v := m.queue.PopHead(true)
		if v == nil {
			return
		}
		line := v.(string)
		if _, err := m.file.WriteString(line); err != nil {
			log.Errorf("write access log fail, %s", err.Error())
		}
		if m.alsoPrint {
			fmt.Print(line)
		}
	}
}

// 关闭前将队列中尚未落盘的日志写完
func (m *AccessLog) Close() {
	if !atomic.CompareAndSwapUint32(&m.closedMark, 0, 1) {
		return
	}
	close(m.closeNotify)
	<-m.closeDone
	m.file.Close()
}
