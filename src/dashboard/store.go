package dashboard

import (
	"errors"
	"sync"
	"time"

	"WaterTruckDashboard/src/datasource/file"
	"WaterTruckDashboard/src/processor"
	"WaterTruckDashboard/src/storage"
)

// ErrNoData 还没有任何成功加载的数据
var ErrNoData = errors.New("no data available")

// Snapshot 一次加载与清洗的结果，发布后只读
type Snapshot struct {
	Result   *processor.Result
	Options  FilterOptions
	LoadedAt time.Time
}

// LoadFunc 读取原始数据集
type LoadFunc func() (*file.RawDataset, error)

// Store 保存当前快照；重新加载时整体替换，读者总是看到完整的快照
type Store struct {
	mu      sync.RWMutex
	current *Snapshot
	lastErr error

	reloadMu sync.Mutex // 同一时间只有一次清洗

	pipeline *processor.Pipeline
	analyzer *Analyzer
	metrics  *Metrics
	logger   *storage.Logger
}

func NewStore(pipeline *processor.Pipeline, analyzer *Analyzer, metrics *Metrics, logger *storage.Logger) *Store {
	return &Store{pipeline: pipeline, analyzer: analyzer, metrics: metrics, logger: logger}
}

// Reload 加载并清洗数据集，成功后替换当前快照
// 失败时保留之前的快照，错误可通过Current获取
func (s *Store) Reload(load LoadFunc) (*Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	raw, err := load()
	if err != nil {
		return nil, s.fail(err)
	}

	start := time.Now()
	res, err := s.pipeline.Run(raw)
	if err != nil {
		return nil, s.fail(err)
	}
	s.metrics.ObserveResult(res, time.Since(start))

	snap := &Snapshot{
		Result:   res,
		Options:  BuildOptions(res.Cleaned, s.analyzer.Schema, s.analyzer.Marker, s.analyzer.OptionsTopN),
		LoadedAt: raw.LoadedAt,
	}

	s.mu.Lock()
	s.current = snap
	s.lastErr = nil
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Event(storage.INFO, "数据快照已更新", storage.Fields{
			"id":     res.ID,
			"source": res.Source,
			"rows":   res.Cleaned.Nrow(),
		})
	}
	return snap, nil
}

func (s *Store) fail(err error) error {
	s.metrics.ObserveLoadError()

	s.mu.Lock()
	s.lastErr = err
	keep := s.current != nil
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Event(storage.ERROR, "数据加载失败", storage.Fields{
			"error":         err.Error(),
			"keep_snapshot": keep,
		})
	}
	return err
}

// Current 返回当前快照；从未成功加载时返回最近一次的错误
func (s *Store) Current() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		if s.lastErr != nil {
			return nil, s.lastErr
		}
		return nil, ErrNoData
	}
	return s.current, nil
}

// LastError 最近一次加载的错误，成功后清空
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Dashboard 在当前快照上应用过滤并计算看板
func (s *Store) Dashboard(sel Selection) (*Dashboard, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	return s.analyzer.Build(snap.Result, sel)
}
