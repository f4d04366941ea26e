package repository

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/fluency/internal/domain/model"
	"github.com/okian/fluency/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: total damage ASC, then first-submission sequence ASC, so users
// with equal damage keep the order in which they first appeared. "less" means
// ranks earlier; in-order traversal yields the leaderboard.

const defaultBand = "band_9.0"

// key orders nodes in the treap.
type key struct {
	damage int
	seq    uint64
}

func (a key) less(b key) bool {
	if a.damage != b.damage {
		return a.damage < b.damage
	}
	return a.seq < b.seq
}

// record is the stored state of one user.
type record struct {
	entry model.LeaderboardEntry
	seq   uint64
}

func (r *record) key() key { return key{damage: r.entry.TotalDamage, seq: r.seq} }

// treap node
type node struct {
	k     key
	id    string
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, k key) *node {
	if n == nil {
		return &node{k: k, id: id, prio: rand.Uint64(), size: 1} //nolint:gosec // treap priority, not security sensitive
	}
	if k.less(n.k) {
		n.left = insert(n.left, id, k)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, k)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, k key) *node {
	if n == nil {
		return nil
	}
	if k == n.k {
		// Merge children by rotating highest priority up until leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, k)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, k)
		}
	} else if k.less(n.k) {
		n.left = deleteNode(n.left, k)
	} else {
		n.right = deleteNode(n.right, k)
	}
	fix(n)
	return n
}

// position returns the number of nodes ordered before k.
func position(n *node, k key) int {
	pos := 0
	for n != nil {
		switch {
		case k == n.k:
			return pos + nsize(n.left)
		case k.less(n.k):
			n = n.left
		default:
			pos += nsize(n.left) + 1
			n = n.right
		}
	}
	return pos
}

// collectTop appends up to limit entries in rank order.
func collectTop(n *node, limit int, records map[string]*record, out *[]model.LeaderboardEntry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTop(n.left, limit, records, out)
	if len(*out) < limit {
		if rec, ok := records[n.id]; ok {
			*out = append(*out, rec.entry)
		}
	}
	if len(*out) < limit {
		collectTop(n.right, limit, records, out)
	}
}

// TreapStore is a mutex-guarded leaderboard. Submissions for the same user
// serialize on the write lock, so no update is lost.
type TreapStore struct {
	mu      sync.RWMutex
	root    *node
	byID    map[string]*record
	nextSeq uint64

	defaultBand           string
	now                   func() time.Time
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		byID:                  make(map[string]*record),
		defaultBand:           defaultBand,
		now:                   time.Now,
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	metrics.UpdateLeaderboardEntries(0)
	s.startMetricsUpdater(ctx)

	return s
}

// Close stops the background metrics goroutine.
func (s *TreapStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Submit implements Store.Submit with O(log n) expected time.
func (s *TreapStore) Submit(_ context.Context, sub model.Submission) (model.LeaderboardEntry, error) {
	if sub.UserID == "" {
		return model.LeaderboardEntry{}, ErrEmptyUserID
	}
	now := s.now().UTC()

	s.mu.Lock()
	rec, ok := s.byID[sub.UserID]
	if ok {
		s.root = deleteNode(s.root, rec.key())
		rec.entry.TotalDamage += sub.Damage
		rec.entry.Attempts++
		rec.entry.LastPlayed = now
		if sub.BandScore != "" {
			rec.entry.BestBand = sub.BandScore
		}
	} else {
		band := sub.BandScore
		if band == "" {
			band = s.defaultBand
		}
		rec = &record{
			seq: s.nextSeq,
			entry: model.LeaderboardEntry{
				UserID:      sub.UserID,
				Username:    sub.Username,
				TotalDamage: sub.Damage,
				Attempts:    1,
				BestBand:    band,
				LastPlayed:  now,
			},
		}
		s.nextSeq++
		s.byID[sub.UserID] = rec
	}
	s.root = insert(s.root, sub.UserID, rec.key())
	entry := rec.entry
	count := len(s.byID)
	s.mu.Unlock()

	if !ok {
		metrics.UpdateLeaderboardEntries(count)
	}
	return entry, nil
}

// Top returns up to limit entries ordered by total damage ascending.
// A limit of zero yields an empty list.
func (s *TreapStore) Top(_ context.Context, limit int) ([]model.LeaderboardEntry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordLeaderboardQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if limit < 0 {
		metrics.RecordError("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.LeaderboardEntry, 0, min(limit, len(s.byID)))
	collectTop(s.root, limit, s.byID, &out)
	return out, nil
}

// Get returns the user's entry and 1-based rank in O(log n).
func (s *TreapStore) Get(_ context.Context, userID string) (RankedEntry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordLeaderboardQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[userID]
	if !ok {
		metrics.RecordError("repository", "not_found")
		return RankedEntry{}, ErrNotFound
	}
	return RankedEntry{LeaderboardEntry: rec.entry, Rank: position(s.root, rec.key()) + 1}, nil
}

// Count returns the number of users on the leaderboard.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// startMetricsUpdater periodically publishes the leaderboard size.
func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateLeaderboardEntries(s.Count(ctx))
			}
		}
	}()
}
