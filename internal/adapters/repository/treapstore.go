package repository

import (
	"context"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kaanreal/companella-sub001/internal/domain/model"
	"github.com/kaanreal/companella-sub001/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: accuracy DESC, then player ASC (deterministic).
// The BST comparator treats "less" as "ranks earlier", so an in-order
// traversal yields the scoreboard from best to worst.

// accScale controls fixed-point scaling from float64. Accuracy lives in
// [0, 1], so nine decimal places are comfortably beyond the precision the
// accuracy formula can produce.
const accScale = 1_000_000_000

type accFP int64

func toFixedPoint(x float64) accFP {
	if math.IsNaN(x) {
		return 0
	}
	if x < 0 {
		return 0
	}
	if x > 1 {
		return accScale
	}
	return accFP(math.Round(x * accScale))
}

func toFloat(x accFP) float64 {
	return float64(x) / accScale
}

// record stores the fixed-point accuracy plus metadata for a player's best.
type record struct {
	acc           accFP
	analysisID    string
	unstableRate  float64
	meanDeviation float64
	missCount     int
	ghostTapCount int
}

// Snapshot represents an immutable snapshot of the scoreboard state.
type Snapshot struct {
	// Rank and accuracy in O(1) for reads
	RankByPlayer     map[string]int
	AccuracyByPlayer map[string]float64

	// Fast Top-K cache up to M items, sorted best to worst.
	TopCache []Entry
}

// treap node
type node struct {
	player string
	acc    accFP
	prio   uint64
	left   *node
	right  *node
	size   int
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

// less returns true if (aAcc, aPlayer) ranks earlier than (bAcc, bPlayer).
func less(aAcc accFP, aPlayer string, bAcc accFP, bPlayer string) bool {
	if aAcc != bAcc {
		return aAcc > bAcc // higher accuracy ranks earlier
	}
	return aPlayer < bPlayer // tie-breaker by player asc
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

// accToPriority keeps better runs near the treap root so TopN touches
// fewer nodes.
func accToPriority(acc accFP) uint64 {
	const offset = uint64(1) << 63
	return uint64(acc) + offset
}

func insert(n *node, player string, acc accFP) *node {
	if n == nil {
		return &node{player: player, acc: acc, prio: accToPriority(acc), size: 1}
	}
	if less(acc, player, n.acc, n.player) {
		n.left = insert(n.left, player, acc)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, player, acc)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, player string, acc accFP) *node {
	if n == nil {
		return nil
	}
	if acc == n.acc && player == n.player {
		// Merge children by rotating the higher priority up until leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, player, acc)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, player, acc)
		}
	} else if less(acc, player, n.acc, n.player) {
		n.left = deleteNode(n.left, player, acc)
	} else {
		n.right = deleteNode(n.right, player, acc)
	}
	fix(n)
	return n
}

// entryFor materializes a scoreboard row from a player's stored record.
func entryFor(player string, rec record) Entry {
	return Entry{
		Player:        player,
		AnalysisID:    rec.analysisID,
		Accuracy:      toFloat(rec.acc),
		UnstableRate:  rec.unstableRate,
		MeanDeviation: rec.meanDeviation,
		MissCount:     rec.missCount,
		GhostTapCount: rec.ghostTapCount,
	}
}

// collectTopN appends up to limit entries in rank order (best first).
// In-order traversal matches the less() ordering, including the
// player-ascending tie-break.
func collectTopN(n *node, limit int, records map[string]record, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}

	collectTopN(n.left, limit, records, out)

	if len(*out) < limit {
		if rec, exists := records[n.player]; exists {
			*out = append(*out, entryFor(n.player, rec))
		}
	}

	if len(*out) < limit {
		collectTopN(n.right, limit, records, out)
	}
}

type TreapStore struct {
	mu               sync.RWMutex
	root             *node
	byPlayer         map[string]record
	reports          map[string]*model.Report
	snapshotInterval time.Duration
	topCacheSize     int

	// snapshot is an atomic pointer to the latest published Snapshot.
	snapshot atomic.Pointer[Snapshot]

	// Periodic snapshot management
	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		snapshotInterval: 1 * time.Second,
		topCacheSize:     500,
		byPlayer:         make(map[string]record),
		reports:          make(map[string]*model.Report),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.stopChan = make(chan struct{})
	s.startPeriodicSnapshots(ctx)
	s.startMetricsUpdater(ctx)

	return s
}

// startPeriodicSnapshots publishes snapshots at the configured interval.
func (s *TreapStore) startPeriodicSnapshots(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.snapshotInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.publishSnapshot()
			}
		}
	}()
}

// publishSnapshot rebuilds and publishes a new snapshot.
func (s *TreapStore) publishSnapshot() {
	start := time.Now()
	s.mu.RLock()
	s.publishSnapshotInternal()
	s.mu.RUnlock()

	metrics.RecordRepositorySnapshotRebuildDuration(float64(time.Since(start).Milliseconds()))
	metrics.UpdateRepositorySnapshotLastUnix(float64(time.Now().Unix()))
	metrics.IncrementRepositorySnapshotCount()
}

// Close gracefully shuts down the background goroutines.
func (s *TreapStore) Close() error {
	select {
	case <-s.stopChan:
		// Channel already closed
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

// Record implements Store.Record with O(log n) expected time for the
// scoreboard portion.
func (s *TreapStore) Record(ctx context.Context, analysisID, player string, rep *model.Report) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	na := toFixedPoint(rep.Accuracy)

	isNewPlayer := false
	improved := false

	s.mu.Lock()
	s.reports[analysisID] = rep
	reportCount := len(s.reports)

	if old, ok := s.byPlayer[player]; ok {
		if na > old.acc {
			s.root = deleteNode(s.root, player, old.acc)
			improved = true
		}
	} else {
		isNewPlayer = true
		improved = true
	}
	if improved {
		s.byPlayer[player] = record{
			acc:           na,
			analysisID:    analysisID,
			unstableRate:  rep.UnstableRate,
			meanDeviation: rep.MeanDeviation,
			missCount:     rep.MissCount,
			ghostTapCount: rep.GhostTapCount,
		}
		s.root = insert(s.root, player, na)
	}
	s.mu.Unlock()

	// Update metrics outside the lock.
	metrics.UpdateReportsStored(reportCount)
	if isNewPlayer {
		metrics.UpdateTotalPlayers(s.Count(ctx))
	}

	return improved, nil
}

// GetReport returns the archived report for an analysis.
func (s *TreapStore) GetReport(ctx context.Context, analysisID string) (*model.Report, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rep, ok := s.reports[analysisID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return nil, ErrNotFound
	}
	return rep, nil
}

// Rank returns the current rank and best entry for a player in O(n log n).
func (s *TreapStore) Rank(ctx context.Context, player string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byPlayer[player]; !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}

	allEntries := make([]Entry, 0, len(s.byPlayer))
	collectAll(s.root, s.byPlayer, &allEntries)

	sortEntries(allEntries)
	assignRanksWithTies(allEntries)

	for _, entry := range allEntries {
		if entry.Player == player {
			return entry, nil
		}
	}

	return Entry{}, ErrNotFound
}

// TopN returns the top N entries ordered by accuracy desc.
func (s *TreapStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, n)
	collectTopN(s.root, n, s.byPlayer, &out)

	assignRanksWithTies(out)
	return out, nil
}

// Count returns the total number of players on the scoreboard.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byPlayer)
}

// publishSnapshotInternal rebuilds and publishes a new snapshot.
// Assumes the read lock is held.
func (s *TreapStore) publishSnapshotInternal() {
	topCache := make([]Entry, 0, s.topCacheSize)
	collectTopN(s.root, s.topCacheSize, s.byPlayer, &topCache)

	rankByPlayer := make(map[string]int, len(s.byPlayer))
	accuracyByPlayer := make(map[string]float64, len(s.byPlayer))

	allEntries := make([]Entry, 0, len(s.byPlayer))
	collectAll(s.root, s.byPlayer, &allEntries)
	assignRanksWithTies(allEntries)

	for _, entry := range allEntries {
		rankByPlayer[entry.Player] = entry.Rank
		accuracyByPlayer[entry.Player] = entry.Accuracy
	}

	for i := range topCache {
		if rank, exists := rankByPlayer[topCache[i].Player]; exists {
			topCache[i].Rank = rank
		}
	}

	s.snapshot.Store(&Snapshot{
		RankByPlayer:     rankByPlayer,
		AccuracyByPlayer: accuracyByPlayer,
		TopCache:         topCache,
	})
}

// startMetricsUpdater refreshes gauge metrics in the background.
func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

// updateMetrics refreshes repository gauges.
func (s *TreapStore) updateMetrics() {
	s.mu.RLock()
	playerCount := len(s.byPlayer)
	reportCount := len(s.reports)
	s.mu.RUnlock()

	metrics.UpdateRepositoryRecordsTotal(reportCount)
	metrics.UpdateTotalPlayers(playerCount)
	metrics.UpdateReportsStored(reportCount)
}

// collectAll appends all entries in rank order (best first).
func collectAll(n *node, byPlayer map[string]record, out *[]Entry) {
	if n == nil {
		return
	}
	collectAll(n.left, byPlayer, out)
	if rec, ok := byPlayer[n.player]; ok {
		*out = append(*out, entryFor(n.player, rec))
	}
	collectAll(n.right, byPlayer, out)
}

// sortEntries orders entries by accuracy desc, player asc, matching the
// treap comparator.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Accuracy != entries[j].Accuracy {
			return entries[i].Accuracy > entries[j].Accuracy
		}
		return entries[i].Player < entries[j].Player
	})
}

// assignRanksWithTies assigns ranks with tie handling. Players with equal
// accuracy share a rank; the rank sequence stays consecutive.
func assignRanksWithTies(entries []Entry) {
	if len(entries) == 0 {
		return
	}

	currentRank := 1
	for i := 0; i < len(entries); i++ {
		entries[i].Rank = currentRank

		sameAccCount := 1
		for j := i + 1; j < len(entries) && entries[j].Accuracy == entries[i].Accuracy; j++ {
			entries[j].Rank = currentRank
			sameAccCount++
		}

		currentRank++
		i += sameAccCount - 1
	}
}
