// Copyright 2021 fangyousong(方友松). All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// connection, client, server的状态统计信息
package nab

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sugawarayuuta/sonnet"
)

//耗时区间
type TimeRange int64

const (
	TimeRange1 TimeRange = iota
	TimeRange2
	TimeRange3
	TimeRange4
	TimeRange5
	TimeRange6
	TimeRange7
	TimeRangeOther
)

type EnsureTimeRangeFunc = func(duration int64) TimeRange

func ensureTimeRangeDefault(v int64) TimeRange {
	if v <= 100 {
		return TimeRange1
	} else if v <= 200 {
		return TimeRange2
	} else if v <= 300 {
		return TimeRange3
	} else if v <= 500 {
		return TimeRange4
	} else if v <= 700 {
		return TimeRange5
	} else if v <= 1000 {
		return TimeRange6
	} else if v <= 1500 {
		return TimeRange7
	} else {
		return TimeRangeOther
	}
}

func EnsureTimeRangeMicroSecond(duration int64) TimeRange {
	ms := duration / int64(time.Microsecond)
	return ensureTimeRangeDefault(ms)
}

func EnsureTimeRangeMilliSecond(duration int64) TimeRange {
	ms := duration / int64(time.Millisecond)
	return ensureTimeRangeDefault(ms)
}

// 分区间统计
type TimeCount struct {
	sync.Mutex
	RangeCount [8]int64 `json:"range_count"`
}

func (m *TimeCount) Clear() {
	m.Lock()
	defer m.Unlock()
	for i := range m.RangeCount {
		m.RangeCount[i] = 0
	}
}

func (m *TimeCount) Record(duration int64, ensureFunc EnsureTimeRangeFunc) {
	if ensureFunc == nil {
		return
	}
	m.Lock()
	defer m.Unlock()
	r := ensureFunc(duration)
	if r < TimeRange1 || r > TimeRangeOther {
		r = TimeRangeOther
	}
	m.RangeCount[int(r)] += duration
}

// 请求处理耗时测量
type Measure struct {
	sync.RWMutex
	AllRequests         int64      `json:"all_requests"`
	AllDuration         int64      `json:"all_duration"`
	AllTimeCount        *TimeCount `json:"all_timecount"`
	timeRangeEnsureFunc EnsureTimeRangeFunc
}

func NewMeasure(timeRangeEnsureFunc EnsureTimeRangeFunc) *Measure {
	ret := new(Measure)
	ret.timeRangeEnsureFunc = timeRangeEnsureFunc
	if ret.timeRangeEnsureFunc == nil {
		ret.timeRangeEnsureFunc = EnsureTimeRangeMilliSecond
	}
	ret.AllTimeCount = new(TimeCount)
	return ret
}

func (m *Measure) Add(cnt int64, dur time.Duration) {
	m.RLock()
	defer m.RUnlock()
	atomic.AddInt64(&m.AllRequests, cnt)
	atomic.AddInt64(&m.AllDuration, int64(dur))
	m.AllTimeCount.Record(int64(dur), m.timeRangeEnsureFunc)
}

func (m *Measure) Json() []byte {
	m.Lock()
	defer m.Unlock()
	if ret, err := sonnet.Marshal(m); err == nil {
		return ret
	}
	return nil
}

type Count struct {
	RequestsReceived int64 `json:"requests_received"`
	ResponsesSent    int64 `json:"responses_sent"`
	AcksSent         int64 `json:"acks_sent"`
	BytesSent        int64 `json:"bytes_sent"`
	BytesReceived    int64 `json:"bytes_received"`
	Errors           int64 `json:"errors"`
}

func (m *Count) Add(v Count) {
	atomic.AddInt64(&m.RequestsReceived, v.RequestsReceived)
	atomic.AddInt64(&m.ResponsesSent, v.ResponsesSent)
	atomic.AddInt64(&m.AcksSent, v.AcksSent)
	atomic.AddInt64(&m.BytesSent, v.BytesSent)
	atomic.AddInt64(&m.BytesReceived, v.BytesReceived)
	atomic.AddInt64(&m.Errors, v.Errors)
}

// server按method分维度的统计，method为"?"的请求也计入
type ServerStatis struct {
	Count       *Count
	Measure     *Measure
	methodCount map[string]*Count
	methodMs    map[string]*Measure
	lock        sync.RWMutex
}

func NewServerStatis() *ServerStatis {
	return &ServerStatis{
		Count:       &Count{},
		Measure:     NewMeasure(nil),
		methodCount: make(map[string]*Count),
		methodMs:    make(map[string]*Measure),
	}
}

func (m *ServerStatis) methodEntry(method string) (*Count, *Measure) {
	m.lock.RLock()
	c, okC := m.methodCount[method]
	ms, okM := m.methodMs[method]
	m.lock.RUnlock()
	if okC && okM {
		return c, ms
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	if c, okC = m.methodCount[method]; !okC {
		c = &Count{}
		m.methodCount[method] = c
	}
	if ms, okM = m.methodMs[method]; !okM {
		ms = NewMeasure(nil)
		m.methodMs[method] = ms
	}
	return c, ms
}

func (m *ServerStatis) AddCount(method string, cnt Count) {
	m.Count.Add(cnt)
	c, _ := m.methodEntry(method)
	c.Add(cnt)
}

func (m *ServerStatis) AddMeasure(method string, cnt int64, dur time.Duration) {
	m.Measure.Add(cnt, dur)
	_, ms := m.methodEntry(method)
	ms.Add(cnt, dur)
}

func (m *ServerStatis) MethodCount(method string) Count {
	c, _ := m.methodEntry(method)
	return Count{
		RequestsReceived: atomic.LoadInt64(&c.RequestsReceived),
		ResponsesSent:    atomic.LoadInt64(&c.ResponsesSent),
		AcksSent:         atomic.LoadInt64(&c.AcksSent),
		BytesSent:        atomic.LoadInt64(&c.BytesSent),
		BytesReceived:    atomic.LoadInt64(&c.BytesReceived),
		Errors:           atomic.LoadInt64(&c.Errors),
	}
}

func (m *ServerStatis) Json() []byte {
	m.lock.RLock()
	defer m.lock.RUnlock()
	obj := map[string]interface{}{
		"count":        m.Count,
		"measure":      m.Measure,
		"method_count": m.methodCount,
	}
	if ret, err := sonnet.Marshal(obj); err == nil {
		return ret
	}
	return nil
}

func (m *ServerStatis) String() string {
	return fmt.Sprintf("requests: %d, responses: %d, acks: %d, errors: %d",
		atomic.LoadInt64(&m.Count.RequestsReceived),
		atomic.LoadInt64(&m.Count.ResponsesSent),
		atomic.LoadInt64(&m.Count.AcksSent),
		atomic.LoadInt64(&m.Count.Errors))
}
