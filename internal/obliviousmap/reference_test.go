package obliviousmap

import (
	"context"
	"crypto/rand"
	"sync"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"

	"github.com/TaceoLabs/bitservice/internal/transport"
	"github.com/TaceoLabs/bitservice/internal/wire"
)

// chanPipe is an in-memory, channel-backed transport.Transport used to wire
// three Reference instances together as ring neighbors within a single test
// process, standing in for the real TCP/WebSocket fabric.
type chanPipe struct {
	out chan<- []byte
	in  <-chan []byte
}

func (p *chanPipe) Send(ctx context.Context, message []byte) error {
	select {
	case p.out <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *chanPipe) Recv(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-p.in:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *chanPipe) Stats() transport.ConnectionStats { return transport.ConnectionStats{} }
func (p *chanPipe) Close() error                     { return nil }

// ring3 returns one transport per party for a 3-party ring: party i sends on
// channel i (to party i+1) and receives on channel i-1 (from party i-1),
// mirroring transport.Ring's out/in split.
func ring3() [3]*chanPipe {
	var ch [3]chan []byte
	for i := range ch {
		ch[i] = make(chan []byte, 1)
	}
	var legs [3]*chanPipe
	for i := 0; i < 3; i++ {
		legs[i] = &chanPipe{out: ch[i], in: ch[(i+2)%3]}
	}
	return legs
}

func splitUint32(t *testing.T, secret uint32) [3]wire.KeyShare {
	t.Helper()
	var x [3]uint32
	x[0] = randUint32(t)
	x[1] = randUint32(t)
	x[2] = secret - x[0] - x[1]

	var shares [3]wire.KeyShare
	for i := 0; i < 3; i++ {
		shares[i] = wire.KeyShare{Lo: x[i], Hi: x[(i+1)%3]}
	}
	return shares
}

func splitField(t *testing.T, secret fr.Element) [3]wire.FieldShare {
	t.Helper()
	var y [3]fr.Element
	_, err := y[0].SetRandom()
	require.NoError(t, err)
	_, err = y[1].SetRandom()
	require.NoError(t, err)
	y[2].Sub(&secret, &y[0])
	y[2].Sub(&y[2], &y[1])

	var shares [3]wire.FieldShare
	for i := 0; i < 3; i++ {
		shares[i] = wire.FieldShare{Lo: y[i], Hi: y[(i+1)%3]}
	}
	return shares
}

func randUint32(t *testing.T) uint32 {
	t.Helper()
	var buf [4]byte
	_, err := rand.Read(buf[:])
	require.NoError(t, err)
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
}

func fieldOne() fr.Element {
	var one fr.Element
	one.SetOne()
	return one
}

// runRound calls op(party, netA, netB) for parties 0, 1 and 2 concurrently
// over a fresh 3-party ring, and returns their three results in order.
func runRound[T any](t *testing.T, maps [3]*Reference, op func(m *Reference, netA, netB transport.Transport) (T, error)) [3]T {
	t.Helper()
	ringA, ringB := ring3(), ring3()

	var wg sync.WaitGroup
	var results [3]T
	var errs [3]error
	wg.Add(3)
	for i := 0; i < 3; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = op(maps[i], ringA[i], ringB[i])
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoErrorf(t, err, "party %d", i)
	}
	return results
}

func reconstructValue(t *testing.T, shares [3]fr.Element) Value {
	sum := shares[0]
	sum.Add(&sum, &shares[1])
	sum.Add(&sum, &shares[2])

	var zero, one fr.Element
	one.SetOne()
	switch {
	case sum.Equal(&zero):
		return NotBanned
	case sum.Equal(&one):
		return Banned
	default:
		t.Fatalf("reconstructed value %s is not in {0, 1}", sum.String())
		return 0
	}
}

// Value mirrors internal/client.Value's two-outcome result, kept local to
// this test so it does not need to import the client package.
type Value int

const (
	NotBanned Value = iota
	Banned
)

func TestReferenceBanThenReadReturnsBanned(t *testing.T) {
	var maps [3]*Reference
	for i := range maps {
		maps[i] = NewReference(uint8(i))
	}

	key := randUint32(t)
	keyShares := splitUint32(t, key)

	before := runRound(t, maps, func(m *Reference, netA, netB transport.Transport) (ReadResult, error) {
		return m.Read(ReadRequest{Key: keyShares[m.partyID], R: wire.FieldShare{}}, netA, netB)
	})
	var beforeShares [3]fr.Element
	for i, r := range before {
		beforeShares[i] = r.ReadShare
	}
	require.Equal(t, NotBanned, reconstructValue(t, beforeShares))

	valueShares := splitField(t, fieldOne())
	rKeyShares := splitField(t, fr.Element{})
	rValueShares := splitField(t, fr.Element{})
	_ = runRound(t, maps, func(m *Reference, netA, netB transport.Transport) (WriteResult, error) {
		req := WriteRequest{
			Key:    keyShares[m.partyID],
			Value:  valueShares[m.partyID],
			RKey:   rKeyShares[m.partyID],
			RValue: rValueShares[m.partyID],
		}
		return m.InsertOrUpdate(req, netA, netB)
	})

	after := runRound(t, maps, func(m *Reference, netA, netB transport.Transport) (ReadResult, error) {
		return m.Read(ReadRequest{Key: keyShares[m.partyID], R: wire.FieldShare{}}, netA, netB)
	})
	var afterShares [3]fr.Element
	for i, r := range after {
		afterShares[i] = r.ReadShare
	}
	require.Equal(t, Banned, reconstructValue(t, afterShares))
}

func TestReferenceUpdateOnMissingKeyFails(t *testing.T) {
	var maps [3]*Reference
	for i := range maps {
		maps[i] = NewReference(uint8(i))
	}

	key := randUint32(t)
	keyShares := splitUint32(t, key)
	valueShares := splitField(t, fieldOne())
	rKeyShares := splitField(t, fr.Element{})
	rValueShares := splitField(t, fr.Element{})

	ringA, ringB := ring3(), ring3()
	var wg sync.WaitGroup
	errs := make([]error, 3)
	wg.Add(3)
	for i := 0; i < 3; i++ {
		go func(i int) {
			defer wg.Done()
			req := WriteRequest{
				Key:    keyShares[i],
				Value:  valueShares[i],
				RKey:   rKeyShares[i],
				RValue: rValueShares[i],
			}
			_, errs[i] = maps[i].Update(req, ringA[i], ringB[i])
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.Error(t, err)
	}
}

func TestReferenceSnapshotRestoreRoundTrips(t *testing.T) {
	m := NewReference(0)
	m.entries[42] = true
	m.version = 3

	data, err := m.Snapshot()
	require.NoError(t, err)

	restored := NewReference(0)
	require.NoError(t, restored.Restore(data))
	require.Equal(t, true, restored.entries[42])
	require.Equal(t, uint64(3), restored.version)
}
