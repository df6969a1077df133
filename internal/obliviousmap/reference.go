package obliviousmap

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"

	"github.com/TaceoLabs/bitservice/internal/bserror"
	"github.com/TaceoLabs/bitservice/internal/transport"
	"github.com/TaceoLabs/bitservice/internal/wire"
)

// Reference is a deterministic, non-production Map: a flat in-memory
// banlist rather than the replicated Merkle/linear-scan structure the real
// oblivious-map collaborator would maintain. It still runs one network
// round per operation (reconstructing the share of the caller's key/value
// with its ring neighbors, mirroring the original_source's
// oblivious-linear-scan-map crate) so the rest of the system's plumbing is
// exercisable end to end, but it reconstructs key and value material in the
// clear locally rather than keeping it oblivious across the three parties:
// it trades the real collaborator's privacy guarantee for something that
// compiles, links and answers real read/ban/unban/prune traffic. Roots,
// commitments and proofs it emits are placeholders, not cryptographically
// binding.
type Reference struct {
	partyID uint8

	mu      sync.Mutex
	entries map[uint32]bool
	version uint64
}

// NewReference returns an empty Reference map for the given party.
func NewReference(partyID uint8) *Reference {
	return &Reference{partyID: partyID, entries: make(map[uint32]bool)}
}

func (m *Reference) Read(req ReadRequest, netA, netB transport.Transport) (ReadResult, error) {
	key, err := reconstructKey(netA, req.Key)
	if err != nil {
		return ReadResult{}, errors.Wrap(err, "reconstructing key share")
	}
	r, err := reconstructField(netB, req.R)
	if err != nil {
		return ReadResult{}, errors.Wrap(err, "reconstructing randomness share")
	}

	m.mu.Lock()
	banned := m.entries[key]
	m.mu.Unlock()

	// Only one party contributes a non-zero share of the reconstructed
	// value; the other two answer with the additive identity. Every party
	// reconstructs the same (key, banned) pair independently, so the three
	// shares always sum to the correct bit regardless of which peer is
	// asked.
	var share fr.Element
	if banned && m.partyID == 0 {
		share.SetOne()
	}

	root := placeholderElement(uint64(key))
	commitment := placeholderElement(uint64(key))
	commitment.Add(&commitment, &r)

	return ReadResult{
		ReadShare:  share,
		Proof:      placeholderProof(),
		Root:       root,
		Commitment: commitment,
	}, nil
}

func (m *Reference) InsertOrUpdate(req WriteRequest, netA, netB transport.Transport) (WriteResult, error) {
	return m.write(req, netA, netB, false)
}

func (m *Reference) Update(req WriteRequest, netA, netB transport.Transport) (WriteResult, error) {
	return m.write(req, netA, netB, true)
}

func (m *Reference) write(req WriteRequest, netA, netB transport.Transport, requireExisting bool) (WriteResult, error) {
	key, err := reconstructKey(netA, req.Key)
	if err != nil {
		return WriteResult{}, errors.Wrap(err, "reconstructing key share")
	}
	value, err := reconstructField(netA, req.Value)
	if err != nil {
		return WriteResult{}, errors.Wrap(err, "reconstructing value share")
	}
	rKey, err := reconstructField(netB, req.RKey)
	if err != nil {
		return WriteResult{}, errors.Wrap(err, "reconstructing key randomness share")
	}
	rValue, err := reconstructField(netB, req.RValue)
	if err != nil {
		return WriteResult{}, errors.Wrap(err, "reconstructing value randomness share")
	}

	var zero fr.Element
	banned := !value.Equal(&zero)

	m.mu.Lock()
	_, exists := m.entries[key]
	if requireExisting && !exists {
		m.mu.Unlock()
		return WriteResult{}, bserror.Newf(bserror.NotFound, "update: key %d does not exist", key)
	}
	oldRoot := placeholderElement(m.version)
	m.entries[key] = banned
	m.version++
	newRoot := placeholderElement(m.version)
	m.mu.Unlock()

	commitmentKey := placeholderElement(uint64(key))
	commitmentKey.Add(&commitmentKey, &rKey)
	commitmentValue := value
	commitmentValue.Add(&commitmentValue, &rValue)

	return WriteResult{
		Proof:           placeholderProof(),
		OldRoot:         oldRoot,
		NewRoot:         newRoot,
		CommitmentKey:   commitmentKey,
		CommitmentValue: commitmentValue,
	}, nil
}

// Prune runs one trivial network round (so it obeys the same one-round
// contract as a real prune would) and then drops every not-banned entry:
// those are indistinguishable from an absent key, so keeping them costs
// memory without adding information.
func (m *Reference) Prune(net transport.Transport) error {
	if err := net.Send(context.Background(), []byte("prune")); err != nil {
		return errors.Wrap(err, "prune: sending round marker")
	}
	if _, err := net.Recv(context.Background()); err != nil {
		return errors.Wrap(err, "prune: receiving round marker")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for k, banned := range m.entries {
		if !banned {
			delete(m.entries, k)
		}
	}
	return nil
}

// referenceSnapshot is the gob-encoded persisted form of a Reference map,
// per SPEC_FULL.md section 4.6.
type referenceSnapshot struct {
	PartyID uint8
	Version uint64
	Entries map[uint32]bool
}

func (m *Reference) Snapshot() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var buf bytes.Buffer
	snap := referenceSnapshot{PartyID: m.partyID, Version: m.version, Entries: m.entries}
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, errors.Wrap(err, "encoding reference map snapshot")
	}
	return buf.Bytes(), nil
}

func (m *Reference) Restore(data []byte) error {
	var snap referenceSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return errors.Wrap(err, "decoding reference map snapshot")
	}
	if snap.Entries == nil {
		snap.Entries = make(map[uint32]bool)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = snap.Entries
	m.version = snap.Version
	return nil
}

// reconstructKey exchanges this party's low share with its ring neighbors
// to recover the third (2-of-3 replicated) share, then sums all three to
// recover the full 32-bit key, mirroring splitKey's construction in
// internal/client.
func reconstructKey(net transport.Transport, share wire.KeyShare) (uint32, error) {
	third, err := exchangeUint32(net, share.Lo)
	if err != nil {
		return 0, err
	}
	return share.Lo + share.Hi + third, nil
}

// reconstructField is reconstructKey's field-element analogue, mirroring
// splitField.
func reconstructField(net transport.Transport, share wire.FieldShare) (fr.Element, error) {
	third, err := exchangeFieldElement(net, share.Lo)
	if err != nil {
		return fr.Element{}, err
	}
	full := share.Lo
	full.Add(&full, &share.Hi)
	full.Add(&full, &third)
	return full, nil
}

func exchangeUint32(net transport.Transport, mine uint32) (uint32, error) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, mine)
	if err := net.Send(context.Background(), buf); err != nil {
		return 0, err
	}
	msg, err := net.Recv(context.Background())
	if err != nil {
		return 0, err
	}
	if len(msg) != 4 {
		return 0, errors.Errorf("reference map: expected 4-byte key share, got %d bytes", len(msg))
	}
	return binary.LittleEndian.Uint32(msg), nil
}

func exchangeFieldElement(net transport.Transport, mine fr.Element) (fr.Element, error) {
	b := mine.Bytes()
	if err := net.Send(context.Background(), b[:]); err != nil {
		return fr.Element{}, err
	}
	msg, err := net.Recv(context.Background())
	if err != nil {
		return fr.Element{}, err
	}
	if len(msg) != fr.Bytes {
		return fr.Element{}, errors.Errorf("reference map: expected %d-byte field share, got %d bytes", fr.Bytes, len(msg))
	}
	var buf [fr.Bytes]byte
	copy(buf[:], msg)
	var e fr.Element
	e.SetBytes(buf[:])
	return e, nil
}

func placeholderElement(seed uint64) fr.Element {
	var e fr.Element
	e.SetUint64(seed)
	return e
}

// placeholderProof is a Groth16Proof over the identity points: it round-trips
// through the wire encoding but binds nothing, standing in for the real
// collaborator's proof emission.
func placeholderProof() wire.Groth16Proof {
	return wire.Groth16Proof{}
}
