package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"GigScout/internal/model"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func strPtr(s string) *string { return &s }

// memStore 内存版 SignalStore，行为与 repository.Store 一致
type memStore struct {
	mu      sync.Mutex
	signals []*model.Signal
	opps    []*model.Opportunity
	nextSig uint64
	nextOpp uint64

	insertErr error
	listErr   error
	pingErr   error
	unclaimed error
}

func newMemStore() *memStore { return &memStore{} }

func copySignal(s *model.Signal) *model.Signal {
	c := *s
	return &c
}

func copyOpp(o *model.Opportunity) *model.Opportunity {
	c := *o
	return &c
}

func sameURL(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *memStore) FindDuplicateSignal(_ context.Context, source string, sourceURL *string, detectedAt time.Time, window time.Duration) (*model.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.signals {
		if s.Source != source || !sameURL(s.SourceURL, sourceURL) {
			continue
		}
		if s.DetectedAt.Before(detectedAt.Add(-window)) || s.DetectedAt.After(detectedAt.Add(window)) {
			continue
		}
		return copySignal(s), nil
	}
	return nil, nil
}

func (m *memStore) InsertSignal(_ context.Context, s *model.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.nextSig++
	s.ID = m.nextSig
	m.signals = append(m.signals, copySignal(s))
	return nil
}

func (m *memStore) ClaimSignal(_ context.Context, signalID, opportunityID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.signals {
		if s.ID == signalID && s.OpportunityID == nil {
			id := opportunityID
			s.OpportunityID = &id
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) FindUnclaimedSignalsSince(_ context.Context, since time.Time) ([]*model.Signal, error) {
	if m.unclaimed != nil {
		return nil, m.unclaimed
	}
	return m.since(since, func(s *model.Signal) bool { return s.OpportunityID == nil }), nil
}

func (m *memStore) FindSignalsSince(_ context.Context, since time.Time) ([]*model.Signal, error) {
	return m.since(since, func(*model.Signal) bool { return true }), nil
}

func (m *memStore) since(since time.Time, keep func(*model.Signal) bool) []*model.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Signal
	for _, s := range m.signals {
		if keep(s) && !s.DetectedAt.Before(since) {
			out = append(out, copySignal(s))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DetectedAt.Equal(out[j].DetectedAt) {
			return out[i].DetectedAt.After(out[j].DetectedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *memStore) findActive(match func(o *model.Opportunity) bool) *model.Opportunity {
	var best *model.Opportunity
	for _, o := range m.opps {
		if !o.IsActive || !match(o) {
			continue
		}
		if best == nil || o.UpdatedAt.After(best.UpdatedAt) {
			best = o
		}
	}
	if best == nil {
		return nil
	}
	return copyOpp(best)
}

func (m *memStore) FindActiveOpportunityByClusterKey(_ context.Context, key string) (*model.Opportunity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findActive(func(o *model.Opportunity) bool { return o.ClusterKey == key }), nil
}

func (m *memStore) FindActiveOpportunityByCategory(_ context.Context, category string) (*model.Opportunity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findActive(func(o *model.Opportunity) bool { return strings.EqualFold(o.Category, category) }), nil
}

func (m *memStore) FindActiveOpportunityByUUID(_ context.Context, id string) (*model.Opportunity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findActive(func(o *model.Opportunity) bool { return o.OpportunityUUID == id }), nil
}

func (m *memStore) UpsertOpportunity(_ context.Context, o *model.Opportunity) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == 0 {
		m.nextOpp++
		o.ID = m.nextOpp
		if o.OpportunityUUID == "" {
			o.OpportunityUUID = fmt.Sprintf("opp-%d", o.ID)
		}
		if o.CreatedAt.IsZero() {
			o.CreatedAt = o.UpdatedAt
		}
		m.opps = append(m.opps, copyOpp(o))
		return true, nil
	}
	for i, existing := range m.opps {
		if existing.ID == o.ID {
			m.opps[i] = copyOpp(o)
			return false, nil
		}
	}
	return false, fmt.Errorf("opportunity %d not found", o.ID)
}

func (m *memStore) DeactivateStaleOpportunities(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.opps {
		if o.IsActive && o.UpdatedAt.Before(cutoff) {
			o.IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListActiveOpportunities(_ context.Context, limit int) ([]*model.Opportunity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*model.Opportunity
	for _, o := range m.opps {
		if o.IsActive {
			out = append(out, copyOpp(o))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		if out[i].DemandScore != out[j].DemandScore {
			return out[i].DemandScore > out[j].DemandScore
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) CountActiveOpportunities(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.opps {
		if o.IsActive {
			n++
		}
	}
	return n, nil
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

// seed 直接写入一条机会（绕过 UpsertOpportunity 的时间处理）
func (m *memStore) seed(o *model.Opportunity) *model.Opportunity {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextOpp++
	o.ID = m.nextOpp
	if o.OpportunityUUID == "" {
		o.OpportunityUUID = fmt.Sprintf("opp-%d", o.ID)
	}
	m.opps = append(m.opps, copyOpp(o))
	return o
}

func (m *memStore) opportunity(id uint64) *model.Opportunity {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.opps {
		if o.ID == id {
			return copyOpp(o)
		}
	}
	return nil
}

func (m *memStore) activeOpportunities() []*model.Opportunity {
	out, _ := m.ListActiveOpportunities(context.Background(), 0)
	return out
}

func (m *memStore) signal(id uint64) *model.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.signals {
		if s.ID == id {
			return copySignal(s)
		}
	}
	return nil
}

func (m *memStore) signalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.signals)
}

// fakeSynth 按主题返回预设结果，并记录每次收到的输入数量
type fakeSynth struct {
	mu      sync.Mutex
	byTopic map[string][]model.SynthesizedOpportunity
	inputs  []int
}

func (f *fakeSynth) Synthesize(_ context.Context, signals []*model.Signal, topic string, _ *model.UserContext) []model.SynthesizedOpportunity {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, len(signals))
	return f.byTopic[topic]
}

// fakeBot 可配置返回、panic 或阻塞（忽略ctx）
type fakeBot struct {
	name    string
	signals []*model.Signal
	panics  bool
	block   time.Duration
	calls   int
	mu      sync.Mutex
}

func (b *fakeBot) Name() string { return b.name }

func (b *fakeBot) Scan(context.Context) []*model.Signal {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	if b.panics {
		panic("boom")
	}
	if b.block > 0 {
		time.Sleep(b.block)
	}
	out := make([]*model.Signal, len(b.signals))
	for i, s := range b.signals {
		out[i] = copySignal(s)
	}
	return out
}

func (b *fakeBot) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type fakeLocker struct {
	held     bool
	released int
}

func (l *fakeLocker) TryLock(context.Context) (func(), bool, error) {
	if l.held {
		return nil, false, nil
	}
	l.held = true
	return func() { l.held = false; l.released++ }, true, nil
}

// sig 构造观测时间为 at 的信号
func sig(source, title string, intensity int, at time.Time) *model.Signal {
	return &model.Signal{Source: source, Type: "test", Title: title, Intensity: intensity, DetectedAt: at}
}
