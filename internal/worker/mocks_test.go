package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// MockClickHouseConn implements driver.Conn for testing
type MockClickHouseConn struct {
	driver.Conn

	mu         sync.Mutex
	rows       [][]interface{}
	sends      int
	execs      []string
	PrepareErr error
	SendErr    error
	Discard    bool
}

func (m *MockClickHouseConn) PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PrepareErr != nil {
		return nil, m.PrepareErr
	}
	return &MockBatch{conn: m}, nil
}

func (m *MockClickHouseConn) Exec(ctx context.Context, query string, args ...interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execs = append(m.execs, query)
	return nil
}

func (m *MockClickHouseConn) Rows() [][]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]interface{}(nil), m.rows...)
}

func (m *MockClickHouseConn) Sends() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sends
}

// MockBatch implements driver.Batch; rows reach the conn only on Send.
type MockBatch struct {
	driver.Batch
	conn    *MockClickHouseConn
	pending [][]interface{}
}

func (m *MockBatch) Append(v ...interface{}) error {
	if len(v) != 12 {
		return errors.New("unexpected column count")
	}
	m.pending = append(m.pending, v)
	return nil
}

func (m *MockBatch) Send() error {
	m.conn.mu.Lock()
	defer m.conn.mu.Unlock()
	if m.conn.SendErr != nil {
		return m.conn.SendErr
	}
	m.conn.sends++
	if !m.conn.Discard {
		m.conn.rows = append(m.conn.rows, m.pending...)
	}
	return nil
}
