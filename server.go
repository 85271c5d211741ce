package nab

import (
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"
)

type ServerConfig struct {
	ReadTimeout    time.Duration //gate.Read的超时限制
	AckInterval    time.Duration //上传进度ack帧的最小发送间隔
	ListenBacklog  int
	AccessLogFile  string //请求日志文件
	PrintAccessLog bool   //请求日志是否同时输出到控制台
}

type Server struct {
	DefaultErrorHolder
	DefaultContext
	config      ServerConfig
	listenAddr  string
	mux         *Multiplexer
	handler     RequestHandler
	accessLog   *AccessLog
	statis      *ServerStatis
	connections map[string]*Connection //key: remote addr
	connLock    sync.Mutex
	closeNotify chan int
	stopOnce    sync.Once
}

func NewServer(config ServerConfig, listenAddr string) (*Server, error) {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultReadTimeout
	}
	if config.AckInterval <= 0 {
		config.AckInterval = DefaultAckInterval
	}
	if config.ListenBacklog <= 0 {
		config.ListenBacklog = 100
	}
	if config.AccessLogFile == "" {
		config.AccessLogFile = "server.log"
	}
	ret := &Server{
		config:      config,
		listenAddr:  listenAddr,
		statis:      NewServerStatis(),
		connections: make(map[string]*Connection),
	}
	return ret, nil
}

// 注册请求处理器，必须在StartListen之前完成
func (m *Server) RegisterHandler(handler RequestHandler) error {
	if handler == nil {
		return fmt.Errorf("handler is nil")
	}
	m.handler = handler
	return nil
}

func (m *Server) Statis() *ServerStatis {
	return m.statis
}

// 创建非阻塞的监听socket。事件循环poll的是裸fd，不能走net.Listener
func (m *Server) listen() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp4", m.listenAddr)
	if err != nil {
		return -1, fmt.Errorf("invalid listen address %s, %s", m.listenAddr, err.Error())
	}
	fd, err := syscall.Socket(syscall.AF_INET, syscall.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("socket fail, %s", err.Error())
	}
	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
		syscall.Close(fd)
		return -1, fmt.Errorf("setsockopt fail, %s", err.Error())
	}
	sa := &syscall.SockaddrInet4{Port: addr.Port}
	if ip4 := addr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	}
	if err := syscall.Bind(fd, sa); err != nil {
		syscall.Close(fd)
		return -1, fmt.Errorf("port %d is busy", addr.Port)
	}
	if err := syscall.Listen(fd, m.config.ListenBacklog); err != nil {
		syscall.Close(fd)
		return -1, fmt.Errorf("listen fail, %s", err.Error())
	}
	if err := fdSetNonblock(fd); err != nil {
		syscall.Close(fd)
		return -1, fmt.Errorf("set nonblock fail, %s", err.Error())
	}
	return fd, nil
}

func (m *Server) StartListen() error {
	if m.handler == nil {
		return fmt.Errorf("no handler registered")
	}
	accessLog, err := NewAccessLog(m.config.AccessLogFile, m.config.PrintAccessLog)
	if err != nil {
		return err
	}
	listenFd, err := m.listen()
	if err != nil {
		accessLog.Close()
		return err
	}
	m.accessLog = accessLog
	m.closeNotify = make(chan int)
	m.mux = newMultiplexer(listenFd, m, m.closeNotify)
	go m.mux.loop()
	log.Logf("listening at %s", m.listenAddr)
	return nil
}

func (m *Server) addConn(conn *Connection) {
	m.connLock.Lock()
	defer m.connLock.Unlock()
	m.connections[conn.remoteAddr] = conn
}

func (m *Server) removeConn(addr string) {
	m.connLock.Lock()
	defer m.connLock.Unlock()
	delete(m.connections, addr)
}

func (m *Server) Stop(err error) {
	m.stopOnce.Do(func() {
		if m.closeNotify == nil {
			return
		}
		if err != nil {
			log.Errorf("server stopped, %s", err.Error())
			m.SetError(err)
		}
		close(m.closeNotify)
		<-m.mux.closeDone
		m.connLock.Lock()
		m.connections = make(map[string]*Connection)
		m.connLock.Unlock()
		m.accessLog.Close()
	})
}
