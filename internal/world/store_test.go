package world

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobertLeahy/MCPP-sub000/internal/protocol"
	"github.com/RobertLeahy/MCPP-sub000/internal/store"
)

type fakeSender struct {
	mu      sync.Mutex
	packets []*protocol.Packet
}

func (f *fakeSender) SendPacket(pkt *protocol.Packet) error {
	f.mu.Lock()
	f.packets = append(f.packets, pkt)
	f.mu.Unlock()
	return nil
}

func (f *fakeSender) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.packets))
	for i, p := range f.packets {
		out[i] = p.Spec.Name
	}
	return out
}

func newTestStore() *Store {
	gens := NewGeneratorRegistry()
	gens.Register(0, "flat", FlatGenerator{SurfaceY: 4, GroundType: 1, HasSky: true})
	pops := []Populator{BedrockPopulator{BlockType: 7}, SurfaceLightPopulator{SurfaceY: 4}}
	return NewStore("flat", gens, pops, nil)
}

func newTestStoreWithBacking(backing store.ColumnStore) *Store {
	gens := NewGeneratorRegistry()
	gens.Register(0, "flat", FlatGenerator{SurfaceY: 4, GroundType: 1, HasSky: true})
	pops := []Populator{BedrockPopulator{BlockType: 7}, SurfaceLightPopulator{SurfaceY: 4}}
	return NewStore("flat", gens, pops, backing)
}

func TestLoadDrivesColumnToGenerated(t *testing.T) {
	s := newTestStore()
	id := ColumnID{X: 0, Z: 0, Dimension: 0}

	col, err := s.Load(id, false)
	require.NoError(t, err)
	assert.Equal(t, Generated, col.State())

	b, err := col.GetBlock(0, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, b.Type)
}

func TestLoadRequirePopulatedRunsPopulatorChain(t *testing.T) {
	s := newTestStore()
	id := ColumnID{X: 1, Z: 0, Dimension: 0}

	col, err := s.Load(id, true)
	require.NoError(t, err)
	assert.Equal(t, Populated, col.State())

	bedrock, err := col.GetBlock(0, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 7, bedrock.Type, "bedrock populator should have overwritten y=0")
}

func TestSetBlockBroadcastsToSubscribers(t *testing.T) {
	s := newTestStore()
	id := ColumnID{X: 2, Z: 0, Dimension: 0}

	sub := &fakeSender{}
	require.NoError(t, s.Subscribe(id, sub))

	require.NoError(t, s.SetBlock(id, 3, 10, 3, Block{Type: 42}))

	names := sub.names()
	require.Len(t, names, 2, "deferred chunk_data send plus the block_change broadcast")
	assert.Contains(t, names, "chunk_data")
	assert.Contains(t, names, "block_change")

	col, ok := s.columns[id]
	require.True(t, ok)
	assert.True(t, col.Dirty())
}

func TestSetBlockVetoBlocksMutation(t *testing.T) {
	s := newTestStore()
	s.SetMutationVeto(func(id ColumnID, x, y, z int, old, next Block) bool {
		return next.Type != 99
	})
	id := ColumnID{X: 3, Z: 0, Dimension: 0}

	require.NoError(t, s.SetBlock(id, 0, 1, 0, Block{Type: 99}))
	b, err := s.GetBlock(id, 0, 1, 0)
	require.NoError(t, err)
	assert.NotEqualValues(t, 99, b.Type, "vetoed mutation must not commit")
}

func TestUnsubscribeSendsUnloadPacketUnlessForced(t *testing.T) {
	s := newTestStore()
	id := ColumnID{X: 6, Z: 0, Dimension: 0}

	sub := &fakeSender{}
	require.NoError(t, s.Subscribe(id, sub))
	s.Unsubscribe(id, sub, false)

	names := sub.names()
	require.Len(t, names, 2, "deferred chunk_data send plus the unload packet")
	assert.Equal(t, "chunk_data", names[0])
	assert.Equal(t, "chunk_data", names[1], "unload is a zero-mask chunk_data packet")

	unload := sub.packets[1]
	assert.EqualValues(t, 0, unload.Uint16("primary_mask"))
	assert.EqualValues(t, 0, unload.Uint16("add_mask"))
	assert.EqualValues(t, 0, unload.Int32("compressed_len"))

	col, ok := s.columns[id]
	require.True(t, ok)
	assert.Equal(t, 0, col.SubscriberCount())
}

func TestUnsubscribeForceSkipsUnloadPacket(t *testing.T) {
	s := newTestStore()
	id := ColumnID{X: 7, Z: 0, Dimension: 0}

	sub := &fakeSender{}
	require.NoError(t, s.Subscribe(id, sub))
	s.Unsubscribe(id, sub, true)

	assert.Len(t, sub.names(), 1, "force unsubscribe must not send the unload packet")
}

func TestUnloadableRequiresNoSubscribersNoInterestClean(t *testing.T) {
	s := newTestStore()
	id := ColumnID{X: 4, Z: 0, Dimension: 0}

	col, err := s.Load(id, false)
	require.NoError(t, err)
	assert.False(t, col.Unloadable(), "a freshly generated column is dirty until saved")
	s.MarkSaved(col)
	assert.True(t, col.Unloadable())

	sub := &fakeSender{}
	col.addSubscriber(sub)
	assert.False(t, col.Unloadable())
	col.removeSubscriber(sub)
	assert.True(t, col.Unloadable())

	s.BeginInterest(id)
	assert.False(t, col.Unloadable())
	s.EndInterest(id)
	assert.True(t, col.Unloadable())
}

func TestLoadMissOnBackingGeneratesAndMarksDirty(t *testing.T) {
	backing := store.NewMemStore()
	s := newTestStoreWithBacking(backing)
	id := ColumnID{X: 8, Z: 0, Dimension: 0}

	col, err := s.Load(id, false)
	require.NoError(t, err)
	assert.Equal(t, Generated, col.State())
	assert.True(t, col.Dirty(), "a freshly generated column awaits its first save")

	_, ok, err := backing.LoadColumn(store.ColumnKey{Dimension: 0, X: 8, Z: 0})
	require.NoError(t, err)
	assert.False(t, ok, "Load must not itself persist to the backing store")
}

func TestLoadHitOnBackingSkipsGeneratorAndStaysClean(t *testing.T) {
	backing := store.NewMemStore()
	id := ColumnID{X: 9, Z: 0, Dimension: 0}

	seed := newTestStore()
	seedCol, err := seed.Load(id, false)
	require.NoError(t, err)
	_, err = seedCol.setBlockLocal(5, 2, 5, Block{Type: 99})
	require.NoError(t, err)
	mask, raw := SerializeColumn(seedCol)
	require.NoError(t, backing.SaveColumn(store.ColumnKey{Dimension: 0, X: 9, Z: 0}, EncodeColumnPayload(mask, raw)))

	s := newTestStoreWithBacking(backing)
	col, err := s.Load(id, false)
	require.NoError(t, err)
	assert.Equal(t, Generated, col.State())
	assert.False(t, col.Dirty(), "a column hydrated from the backing store is already persisted")

	b, err := col.GetBlock(5, 2, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 99, b.Type, "loaded content must match what was persisted, not a fresh generation")
}

func TestStateOfAcquireRetainsInterest(t *testing.T) {
	s := newTestStore()
	id := ColumnID{X: 10, Z: 0, Dimension: 0}

	state, ok := s.StateOf(id, true)
	assert.Equal(t, Loading, state)
	assert.True(t, ok)

	col, ok := s.columns[id]
	require.True(t, ok, "acquire must create the column entry like BeginInterest does")
	assert.False(t, col.Unloadable(), "the acquired interest hold must block eviction")

	s.EndInterest(id)
	assert.True(t, col.Unloadable())
}

func TestStateOfWithoutAcquireReportsUnknownColumn(t *testing.T) {
	s := newTestStore()
	_, ok := s.StateOf(ColumnID{X: 11, Z: 0, Dimension: 0}, false)
	assert.False(t, ok)
}

func TestConcurrentLoadDrivesColumnExactlyOnce(t *testing.T) {
	s := newTestStore()
	id := ColumnID{X: 5, Z: 0, Dimension: 0}

	var wg sync.WaitGroup
	cols := make([]*Column, 8)
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			col, err := s.Load(id, true)
			require.NoError(t, err)
			cols[i] = col
		}()
	}
	wg.Wait()

	for _, c := range cols {
		assert.Same(t, cols[0], c)
		assert.Equal(t, Populated, c.State())
	}
}
