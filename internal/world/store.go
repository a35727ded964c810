package world

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/RobertLeahy/MCPP-sub000/internal/store"
)

// ErrOutOfBounds is returned by Store operations addressing a cell outside
// a column's 16x16x256 extent.
var ErrOutOfBounds = fmt.Errorf("world: coordinate out of bounds")

// Store is the column cache described in spec §4.5: get-or-load columns
// by id, drive each at most once concurrently through its
// Loading->Generated->Populated lifecycle (via singleflight, per the
// design note choosing it over a hand-rolled per-column condvar), and
// fan out block mutations to subscribed sessions.
type Store struct {
	mu      sync.RWMutex
	columns map[ColumnID]*Column

	generators *GeneratorRegistry
	populators []Populator
	worldType  string
	backing    store.ColumnStore

	drive singleflight.Group

	veto         MutationVeto
	onTransition func(id ColumnID, state State)
}

// NewStore builds a Store whose columns generate via gens and are
// decorated, in order, by pops. backing is consulted for a persisted copy
// before a column is generated from scratch (spec §4.5 "attempt
// backing-store load; on miss, invoke the generator"); it may be nil, in
// which case every column is generated fresh.
func NewStore(worldType string, gens *GeneratorRegistry, pops []Populator, backing store.ColumnStore) *Store {
	return &Store{
		columns:    make(map[ColumnID]*Column),
		generators: gens,
		populators: pops,
		worldType:  worldType,
		backing:    backing,
	}
}

// SetMutationVeto installs a hook consulted before every SetBlock commits.
func (s *Store) SetMutationVeto(v MutationVeto) { s.veto = v }

// SetOnTransition installs a hook invoked after a column advances to a new
// lifecycle state, for telemetry/observability collaborators.
func (s *Store) SetOnTransition(fn func(id ColumnID, state State)) { s.onTransition = fn }

func (s *Store) lookupOrCreate(id ColumnID) *Column {
	s.mu.RLock()
	col, ok := s.columns[id]
	s.mu.RUnlock()
	if ok {
		return col
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok = s.columns[id]; ok {
		return col
	}
	col = newColumn(id)
	s.columns[id] = col
	return col
}

// driveTo advances col through Generating/Generated and, if target is
// Populated, through Populating/Populated too. Concurrent callers for the
// same column id collapse onto one singleflight call, so a column is
// never generated or populated twice (spec §4.5 "at most one driver").
func (s *Store) driveTo(col *Column, target State) error {
	if col.State() >= target {
		return nil
	}
	_, err, _ := s.drive.Do(col.ID.String(), func() (any, error) {
		if col.State() < Generated {
			col.advanceState(Generating)
			s.notifyTransition(col.ID, Generating)

			loaded, err := s.loadFromBacking(col)
			if err != nil {
				return nil, err
			}
			if !loaded {
				gen, err := s.generators.Lookup(col.ID.Dimension, s.worldType)
				if err != nil {
					return nil, err
				}
				generated, err := gen.Generate(col.ID)
				if err != nil {
					return nil, fmt.Errorf("world: generate %s: %w", col.ID, err)
				}
				col.mu.Lock()
				col.blocks = generated.blocks
				col.biomes = generated.biomes
				col.mu.Unlock()
				col.markDirty()
			}

			col.advanceState(Generated)
			s.notifyTransition(col.ID, Generated)
		}
		if target >= Populated && col.State() < Populated {
			col.advanceState(Populating)
			s.notifyTransition(col.ID, Populating)
			for _, pop := range s.populators {
				if err := pop.Populate(col); err != nil {
					return nil, fmt.Errorf("world: populate %s: %w", col.ID, err)
				}
			}
			col.advanceState(Populated)
			s.notifyTransition(col.ID, Populated)
		}
		return nil, nil
	})
	return err
}

// loadFromBacking attempts to hydrate col from the backing store, leaving
// it untouched (and dirty-free) on a miss so the caller falls through to
// the generator. The returned bool is true only on a genuine hit.
func (s *Store) loadFromBacking(col *Column) (bool, error) {
	if s.backing == nil {
		return false, nil
	}
	key := store.ColumnKey{Dimension: col.ID.Dimension, X: col.ID.X, Z: col.ID.Z}
	data, ok, err := s.backing.LoadColumn(key)
	if err != nil {
		return false, fmt.Errorf("world: load %s: %w", col.ID, err)
	}
	if !ok {
		return false, nil
	}
	mask, raw, err := DecodeColumnPayload(data)
	if err != nil {
		return false, fmt.Errorf("world: decode %s: %w", col.ID, err)
	}
	blocks, biomes, err := DeserializeColumn(mask, raw)
	if err != nil {
		return false, fmt.Errorf("world: deserialize %s: %w", col.ID, err)
	}
	col.mu.Lock()
	col.blocks = blocks
	col.biomes = biomes
	col.mu.Unlock()
	return true, nil
}

func (s *Store) notifyTransition(id ColumnID, state State) {
	if s.onTransition != nil {
		s.onTransition(id, state)
	}
}

// Load returns the column for id, generating (and, if requirePopulated,
// populating) it first if necessary.
func (s *Store) Load(id ColumnID, requirePopulated bool) (*Column, error) {
	col := s.lookupOrCreate(id)
	target := Generated
	if requirePopulated {
		target = Populated
	}
	if err := s.driveTo(col, target); err != nil {
		return nil, err
	}
	return col, nil
}

// StateOf reports the lifecycle state of a column, without driving it;
// the second return is false if the column has never been loaded. When
// acquire is true, it also takes an interest hold on the column (as
// BeginInterest does), which the caller must release with EndInterest —
// spec §4.5 "state_of(id, acquire)".
func (s *Store) StateOf(id ColumnID, acquire bool) (State, bool) {
	if acquire {
		col := s.lookupOrCreate(id)
		col.interest.Add(1)
		return col.State(), true
	}

	s.mu.RLock()
	col, ok := s.columns[id]
	s.mu.RUnlock()
	if !ok {
		return Loading, false
	}
	return col.State(), true
}

// GetBlock loads id to Generated and returns the block at the given
// in-column coordinates.
func (s *Store) GetBlock(id ColumnID, x, y, z int) (Block, error) {
	col, err := s.Load(id, false)
	if err != nil {
		return Block{}, err
	}
	return col.GetBlock(x, y, z)
}

// SetBlock writes a block, consulting the mutation veto if one is
// installed, then broadcasts a block_change packet to every subscriber
// (spec §4.5 "coherent broadcast").
func (s *Store) SetBlock(id ColumnID, x, y, z int, b Block) error {
	col, err := s.Load(id, true)
	if err != nil {
		return err
	}
	if !inBounds(x, y, z) {
		return ErrOutOfBounds
	}
	if s.veto != nil {
		old, err := col.GetBlock(x, y, z)
		if err != nil {
			return err
		}
		if !s.veto(id, x, y, z, old, b) {
			return nil
		}
	}
	if _, err := col.setBlockLocal(x, y, z, b); err != nil {
		return err
	}

	pkt, err := BlockChangePacket(id, x, y, z, b)
	if err != nil {
		return fmt.Errorf("world: build block_change: %w", err)
	}
	for _, sub := range col.snapshotSubscribers() {
		_ = sub.SendPacket(pkt)
	}
	return nil
}

// Subscribe adds s to the set that receives block_change/chunk_data
// broadcasts for id, deferring the initial chunk_data send until the
// column reaches Populated (spec §4.5 pending-action queue).
func (s *Store) Subscribe(id ColumnID, sub Sender) error {
	col, err := s.Load(id, false)
	if err != nil {
		return err
	}
	col.addSubscriber(sub)
	send := func() {
		pkt, err := ChunkDataPacket(col, true)
		if err != nil {
			return
		}
		_ = sub.SendPacket(pkt)
	}
	col.mu.Lock()
	populated := col.state >= Populated
	if !populated {
		col.pending = append(col.pending, pendingAction{requiredState: Populated, thunk: send})
	}
	col.mu.Unlock()
	if populated {
		send()
	}
	return s.driveTo(col, Populated)
}

// Unsubscribe removes sub from id's broadcast set. Unless force is true,
// it first sends sub the unload packet (spec §4.5) so the client knows to
// discard the column; force skips this (e.g. the client is already
// disconnecting and cannot receive it).
func (s *Store) Unsubscribe(id ColumnID, sub Sender, force bool) {
	s.mu.RLock()
	col, ok := s.columns[id]
	s.mu.RUnlock()
	if !ok {
		return
	}
	if !force {
		if pkt, err := UnloadColumnPacket(id); err == nil {
			_ = sub.SendPacket(pkt)
		}
	}
	col.removeSubscriber(sub)
}

// BeginInterest marks id as held for a non-subscription reason (e.g. a
// pending cross-column operation), preventing eviction until EndInterest
// is called the same number of times.
func (s *Store) BeginInterest(id ColumnID) {
	col := s.lookupOrCreate(id)
	col.interest.Add(1)
}

// EndInterest releases one hold acquired by BeginInterest.
func (s *Store) EndInterest(id ColumnID) {
	s.mu.RLock()
	col, ok := s.columns[id]
	s.mu.RUnlock()
	if !ok {
		return
	}
	col.interest.Add(-1)
}

// Evictable returns every loaded column currently eligible for eviction
// (spec §4.5 "no subscribers, no interest, clean") — the maintenance
// package's save/evict pass calls this each cycle.
func (s *Store) Evictable() []*Column {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Column
	for _, col := range s.columns {
		if col.Unloadable() {
			out = append(out, col)
		}
	}
	return out
}

// Dirty returns every loaded column with unsaved mutations, for the
// maintenance save pass.
func (s *Store) Dirty() []*Column {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Column
	for _, col := range s.columns {
		if col.Dirty() {
			out = append(out, col)
		}
	}
	return out
}

// MarkSaved clears a column's dirty flag after the maintenance pass has
// persisted it.
func (s *Store) MarkSaved(col *Column) { col.clearDirty() }

// Evict removes a column from the cache. Callers must already know it is
// Unloadable (maintenance re-checks under its own snapshot) — Evict does
// not re-validate to keep the save-then-evict sequence atomic from the
// caller's point of view.
func (s *Store) Evict(id ColumnID) {
	s.mu.Lock()
	delete(s.columns, id)
	s.mu.Unlock()
}
