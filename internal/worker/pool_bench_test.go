package worker

import (
	"testing"

	"go.uber.org/zap"
)

func BenchmarkProcessBatch(b *testing.B) {
	p := &Pool{
		config: PoolConfig{ClickHouse: &MockClickHouseConn{Discard: true}},
		logger: zap.NewNop().Sugar(),
	}
	batch := make([]Job, 500)
	for i := range batch {
		batch[i] = testJob("bench")
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := p.processBatch(batch); err != nil {
			b.Fatal(err)
		}
	}
}
