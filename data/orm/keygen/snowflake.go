// Package keygen 为整数主键生成分布式唯一值（雪花算法）。
//
// 布局：41 位毫秒时间戳 | 5 位数据中心 | 5 位工作节点 | 12 位序列号。
package keygen

import (
	"sync"
	"time"

	"matrixsql/errors"
)

const (
	// 起始时间戳 (2023-01-01 00:00:00 UTC)
	epoch int64 = 1672531200000

	workerIDBits     = 5
	datacenterIDBits = 5
	sequenceBits     = 12

	maxWorkerID     = -1 ^ (-1 << workerIDBits)
	maxDatacenterID = -1 ^ (-1 << datacenterIDBits)
	maxSequence     = -1 ^ (-1 << sequenceBits)

	workerIDShift      = sequenceBits
	datacenterIDShift  = sequenceBits + workerIDBits
	timestampLeftShift = sequenceBits + workerIDBits + datacenterIDBits
)

// Generator 雪花主键生成器，可并发使用
type Generator struct {
	mu            sync.Mutex
	node          int64
	sequence      int64
	lastTimestamp int64

	now func() int64
}

// Parts ID 的组成部分
type Parts struct {
	Time         time.Time
	DatacenterID int64
	WorkerID     int64
	Sequence     int64
}

// New 创建生成器，节点编号越界时返回 CONFIGURATION 错误
func New(datacenterID, workerID int64) (*Generator, error) {
	if datacenterID < 0 || datacenterID > maxDatacenterID {
		return nil, errors.NewErrorf(errors.ErrCodeConfiguration,
			"keygen: datacenter id %d out of range [0,%d]", datacenterID, maxDatacenterID)
	}
	if workerID < 0 || workerID > maxWorkerID {
		return nil, errors.NewErrorf(errors.ErrCodeConfiguration,
			"keygen: worker id %d out of range [0,%d]", workerID, maxWorkerID)
	}
	return &Generator{
		node:          datacenterID<<datacenterIDShift | workerID<<workerIDShift,
		lastTimestamp: -1,
		now:           func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// MustNew 同 New，失败时 panic
func MustNew(datacenterID, workerID int64) *Generator {
	g, err := New(datacenterID, workerID)
	if err != nil {
		panic(err)
	}
	return g
}

// NextID 生成下一个 ID；时钟回拨时拒绝生成
func (g *Generator) NextID() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now < g.lastTimestamp {
		return 0, errors.NewErrorf(errors.ErrCodeInternal,
			"keygen: clock moved backwards by %dms", g.lastTimestamp-now)
	}

	if now == g.lastTimestamp {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			// 本毫秒序列号用完
			for now <= g.lastTimestamp {
				now = g.now()
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastTimestamp = now

	return (now-epoch)<<timestampLeftShift | g.node | g.sequence, nil
}

// Parse 拆解 ID
func Parse(id int64) Parts {
	return Parts{
		Time:         time.UnixMilli((id >> timestampLeftShift) + epoch).UTC(),
		DatacenterID: (id >> datacenterIDShift) & maxDatacenterID,
		WorkerID:     (id >> workerIDShift) & maxWorkerID,
		Sequence:     id & maxSequence,
	}
}
