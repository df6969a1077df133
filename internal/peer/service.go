// Package peer implements the per-process ban-list orchestrator: it owns
// the oblivious-map shard, the session rendezvous registries for the
// previous peer's incoming connections, a forward connector to the next
// peer, and the worker pool that runs blocking MPC rounds. It generalizes
// pkg/mcast/core.Peer's mutex/observer/transport/invoker shape to the
// spec's read/ban/unban/prune surface, and follows the exact round
// structure of the original_source's bitservice-peer/src/ban_service.rs
// (init nets, acquire map lock, dispatch to a blocking worker, persist on
// write).
package peer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TaceoLabs/bitservice/internal/bserror"
	"github.com/TaceoLabs/bitservice/internal/ids"
	"github.com/TaceoLabs/bitservice/internal/logging"
	"github.com/TaceoLabs/bitservice/internal/metrics"
	"github.com/TaceoLabs/bitservice/internal/obliviousmap"
	"github.com/TaceoLabs/bitservice/internal/persistence"
	"github.com/TaceoLabs/bitservice/internal/session"
	"github.com/TaceoLabs/bitservice/internal/transport"
	"github.com/TaceoLabs/bitservice/internal/worker"
)

// Connector dials the next peer and returns the two transport-pair legs for
// one round, keyed by the two derived session ids. It abstracts over the
// TCP and WebSocket transport fabrics so Service does not depend on either
// directly, mirroring init_tcp_mpc_nets / init_ws_mpc_nets's shared shape in
// ban_service.rs.
type Connector interface {
	Connect(ctx context.Context, net0, net1 ids.SessionID) (transport.Transport, transport.Transport, error)
}

// Service is one peer process's orchestrator.
type Service struct {
	partyID uint8

	sessions *session.Registry
	reaper   *session.Reaper
	connect  Connector

	prevPeerWaitTimeout time.Duration

	mapMu sync.RWMutex
	m     obliviousmap.Map

	store persistence.Store
	pool  *worker.Pool

	metrics *metrics.Peer
	log     logging.Logger
}

// New loads the persisted map snapshot (or initializes an empty one) and
// returns a ready Service.
func New(
	ctx context.Context,
	partyID uint8,
	m obliviousmap.Map,
	sessions *session.Registry,
	reaper *session.Reaper,
	connect Connector,
	prevPeerWaitTimeout time.Duration,
	store persistence.Store,
	pool *worker.Pool,
	metricsPeer *metrics.Peer,
	log logging.Logger,
) (*Service, error) {
	data, found, err := store.LoadOrInit(ctx)
	if err != nil {
		return nil, bserror.Wrap(bserror.PersistenceError, err, "loading map snapshot")
	}
	if found {
		if err := m.Restore(data); err != nil {
			return nil, bserror.Wrap(bserror.PersistenceError, err, "restoring map snapshot")
		}
		log.Infof("loaded map from db")
	} else {
		log.Infof("init default map")
		snapshot, err := m.Snapshot()
		if err != nil {
			return nil, bserror.Wrap(bserror.InternalError, err, "snapshotting fresh map")
		}
		if err := store.Store(ctx, snapshot); err != nil {
			return nil, bserror.Wrap(bserror.PersistenceError, err, "storing initial map snapshot")
		}
	}

	return &Service{
		partyID:             partyID,
		sessions:            sessions,
		reaper:              reaper,
		connect:             connect,
		prevPeerWaitTimeout: prevPeerWaitTimeout,
		m:                   m,
		store:               store,
		pool:                pool,
		metrics:             metricsPeer,
		log:                 log,
	}, nil
}

// initNets dials and rendezvouses the two transport-pair legs for one round.
func (s *Service) initNets(ctx context.Context, requestID ids.RequestID) (transport.Transport, transport.Transport, error) {
	net0, net1 := ids.DeriveSessionIDs(requestID)

	fwdCtx, cancel := context.WithTimeout(ctx, s.prevPeerWaitTimeout)
	defer cancel()
	next0, next1, err := s.connect.Connect(fwdCtx, net0, net1)
	if err != nil {
		return nil, nil, bserror.Wrap(bserror.UpstreamError, err, "connecting to next peer")
	}

	waitCtx, cancelWait := context.WithTimeout(ctx, s.prevPeerWaitTimeout)
	defer cancelWait()

	type result struct {
		leg int
		t   transport.Transport
		err error
	}
	prevCh := make(chan result, 2)
	go func() {
		s.reaper.Track(uuid.UUID(net0))
		t, err := s.sessions.Get(waitCtx, uuid.UUID(net0))
		prevCh <- result{0, t, err}
	}()
	go func() {
		s.reaper.Track(uuid.UUID(net1))
		t, err := s.sessions.Get(waitCtx, uuid.UUID(net1))
		prevCh <- result{1, t, err}
	}()

	var prev [2]transport.Transport
	for i := 0; i < 2; i++ {
		select {
		case res := <-prevCh:
			if res.err != nil {
				return nil, nil, bserror.Wrap(bserror.TimeoutError, res.err, "waiting for prev peer")
			}
			prev[res.leg] = res.t
		case <-waitCtx.Done():
			return nil, nil, bserror.New(bserror.TimeoutError, "timed out waiting for prev peer")
		}
	}

	return transport.NewRing(next0, prev[0]), transport.NewRing(next1, prev[1]), nil
}

// Read performs an oblivious read under a shared map lock.
func (s *Service) Read(ctx context.Context, requestID ids.RequestID, req obliviousmap.ReadRequest) (obliviousmap.ReadResult, error) {
	net0, net1, err := s.initNets(ctx, requestID)
	if err != nil {
		return obliviousmap.ReadResult{}, err
	}
	defer net0.Close()
	defer net1.Close()

	s.mapMu.RLock()
	defer s.mapMu.RUnlock()

	start := time.Now()
	res, err := worker.Blocking(ctx, s.pool, func() (obliviousmap.ReadResult, error) {
		return s.m.Read(req, net0, net1)
	})
	s.log.Debugf("read took %s", time.Since(start))
	if err != nil {
		return obliviousmap.ReadResult{}, bserror.Wrap(bserror.ProtocolError, err, "oblivious read")
	}
	s.metrics.Reads.Inc()
	s.metrics.RoundDuration.Observe(time.Since(start).Seconds())
	return res, nil
}

// Ban writes the banned marker at req.Key, persisting the new snapshot on
// success.
func (s *Service) Ban(ctx context.Context, requestID ids.RequestID, req obliviousmap.WriteRequest) (obliviousmap.WriteResult, error) {
	return s.write(ctx, requestID, req, s.m.InsertOrUpdate, s.metrics.Bans)
}

// Unban writes the not-banned marker at req.Key.
func (s *Service) Unban(ctx context.Context, requestID ids.RequestID, req obliviousmap.WriteRequest) (obliviousmap.WriteResult, error) {
	return s.write(ctx, requestID, req, s.m.Update, s.metrics.Unbans)
}

type writeOp func(obliviousmap.WriteRequest, transport.Transport, transport.Transport) (obliviousmap.WriteResult, error)

func (s *Service) write(ctx context.Context, requestID ids.RequestID, req obliviousmap.WriteRequest, op writeOp, counter incCounter) (obliviousmap.WriteResult, error) {
	net0, net1, err := s.initNets(ctx, requestID)
	if err != nil {
		return obliviousmap.WriteResult{}, err
	}
	defer net0.Close()
	defer net1.Close()

	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	start := time.Now()
	res, err := worker.Blocking(ctx, s.pool, func() (obliviousmap.WriteResult, error) {
		return op(req, net0, net1)
	})
	s.log.Debugf("write took %s", time.Since(start))
	if err != nil {
		return obliviousmap.WriteResult{}, bserror.Wrap(bserror.ProtocolError, err, "oblivious write")
	}

	snapshot, err := s.m.Snapshot()
	if err != nil {
		return obliviousmap.WriteResult{}, bserror.Wrap(bserror.InternalError, err, "snapshotting map")
	}
	s.log.Debugf("store map in db")
	if err := s.store.Store(ctx, snapshot); err != nil {
		return obliviousmap.WriteResult{}, bserror.Wrap(bserror.PersistenceError, err, "storing map snapshot")
	}

	counter.Inc()
	s.metrics.RoundDuration.Observe(time.Since(start).Seconds())
	return res, nil
}

// Prune runs the prune operation over one MPC network round and persists
// the resulting snapshot, per spec.md section 4.3's three-step prune
// contract (network round, persist, cancel token). Unlike Read/write, prune
// needs only a single network leg (spec.md section 6's prune(net)); the
// second leg initNets establishes is closed unused.
func (s *Service) Prune(ctx context.Context, requestID ids.RequestID) error {
	net0, net1, err := s.initNets(ctx, requestID)
	if err != nil {
		return err
	}
	defer net0.Close()
	net1.Close()

	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	_, err = worker.Blocking(ctx, s.pool, func() (struct{}, error) {
		return struct{}{}, s.m.Prune(net0)
	})
	if err != nil {
		return bserror.Wrap(bserror.ProtocolError, err, "prune")
	}

	snapshot, err := s.m.Snapshot()
	if err != nil {
		return bserror.Wrap(bserror.InternalError, err, "snapshotting map")
	}
	if err := s.store.Store(ctx, snapshot); err != nil {
		return bserror.Wrap(bserror.PersistenceError, err, "storing map snapshot")
	}

	s.metrics.Prunes.Inc()
	return nil
}

// Sessions exposes the rendezvous registry to the connection-upgrade
// handlers in api.go.
func (s *Service) Sessions() *session.Registry { return s.sessions }

// Reaper exposes the stale-waiter reaper so the binary entrypoint can run
// it.
func (s *Service) Reaper() *session.Reaper { return s.reaper }

type incCounter interface{ Inc() }
