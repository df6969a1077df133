package coordinator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/TaceoLabs/bitservice/internal/logging"
	"github.com/TaceoLabs/bitservice/internal/metrics"
	"github.com/TaceoLabs/bitservice/internal/wire"
)

type readMsg struct {
	req    wire.ReadRequest
	result chan<- readResult
}

type readResult struct {
	res wire.ReadResponse
	err error
}

type writeOp int

const (
	writeOpBan writeOp = iota
	writeOpUnban
)

type writeMsg struct {
	op     writeOp
	ban    wire.BanRequest
	unban  wire.UnbanRequest
	result chan<- writeResult
}

type writeResult struct {
	ban   wire.BanResponse
	unban wire.UnbanResponse
	err   error
}

type queueMsg struct {
	read  *readMsg
	write *writeMsg
}

// RPQueue is one relying party's read/write queue: a single goroutine
// serializes access to its three peers so that no read overtakes a write
// and no write overtakes a read or an earlier write, per spec.md section
// 4.2. It is a direct port of rw_queue.rs's RpRwQueue.
type RPQueue struct {
	queue chan queueMsg
	log   logging.Logger
}

// NewRPQueue starts the queue's actor goroutine for the given peer URLs.
func NewRPQueue(
	peerURLs [3]string,
	pruneWriteInterval int,
	maxNumReadTasks int,
	requestTimeout time.Duration,
	m *metrics.Coordinator,
	log logging.Logger,
) *RPQueue {
	q := &RPQueue{
		queue: make(chan queueMsg, 32),
		log:   log,
	}
	go q.run(peers(peerURLs), pruneWriteInterval, maxNumReadTasks, requestTimeout, m)
	return q
}

func (q *RPQueue) run(p peers, pruneWriteInterval, maxNumReadTasks int, requestTimeout time.Duration, m *metrics.Coordinator) {
	client := newFanoutClient(requestTimeout, m.PeerErrors)
	reads := newTaskSet(maxNumReadTasks)
	pruneWriteCounter := 0

	for msg := range q.queue {
		switch {
		case msg.read != nil:
			req, result := msg.read.req, msg.read.result
			requestID := uuid.New()
			q.log.Debugf("got read request %s", requestID)

			if reads.Full() {
				q.log.Debugf("read tasks reached %d - waiting for one to finish", maxNumReadTasks)
				reads.WaitAny()
			}
			m.InFlightReads.Set(float64(reads.Len()))
			reads.Spawn(func() {
				res, err := doPeerRead(context.Background(), client, p, req, requestID.String())
				if err != nil {
					q.log.Warnf("read request %s to peers failed: %v", requestID, err)
				} else {
					q.log.Debugf("read request %s done", requestID)
				}
				result <- readResult{res: res, err: err}
			})

		case msg.write != nil:
			q.log.Debugf("got write")
			pending := reads.Len()
			q.log.Debugf("waiting for %d read tasks to be done", pending)
			reads.WaitAll()
			q.log.Debugf("all read tasks are done")
			m.InFlightReads.Set(0)

			requestID := uuid.New()
			w := msg.write
			switch w.op {
			case writeOpBan:
				q.log.Debugf("got ban request %s", requestID)
				res, err := doPeerBan(context.Background(), client, p, w.ban, requestID.String())
				if err != nil {
					q.log.Warnf("ban request %s to peers failed: %v", requestID, err)
				} else {
					q.log.Debugf("ban request %s done", requestID)
				}
				w.result <- writeResult{ban: res, err: err}
			case writeOpUnban:
				q.log.Debugf("got unban request %s", requestID)
				res, err := doPeerUnban(context.Background(), client, p, w.unban, requestID.String())
				if err != nil {
					q.log.Warnf("unban request %s to peers failed: %v", requestID, err)
				} else {
					q.log.Debugf("unban request %s done", requestID)
				}
				w.result <- writeResult{unban: res, err: err}
			}

			pruneWriteCounter++
			if pruneWriteCounter == pruneWriteInterval {
				q.log.Debugf("reached prune_write_interval %d - send prune request", pruneWriteInterval)
				m.PrunesTriggered.Inc()
				pruneRequestID := uuid.New()
				if err := doPeerPrune(context.Background(), client, p, pruneRequestID.String()); err != nil {
					q.log.Warnf("prune request %s to peers failed: %v", pruneRequestID, err)
				} else {
					q.log.Debugf("prune request %s done", pruneRequestID)
				}
				pruneWriteCounter = 0
			}
		}
	}
}

// Read enqueues a read and blocks until it completes.
func (q *RPQueue) Read(ctx context.Context, req wire.ReadRequest) (wire.ReadResponse, error) {
	result := make(chan readResult, 1)
	select {
	case q.queue <- queueMsg{read: &readMsg{req: req, result: result}}:
	case <-ctx.Done():
		return wire.ReadResponse{}, ctx.Err()
	}
	select {
	case r := <-result:
		return r.res, r.err
	case <-ctx.Done():
		return wire.ReadResponse{}, ctx.Err()
	}
}

// Ban enqueues a ban write and blocks until it completes.
func (q *RPQueue) Ban(ctx context.Context, req wire.BanRequest) (wire.BanResponse, error) {
	result := make(chan writeResult, 1)
	select {
	case q.queue <- queueMsg{write: &writeMsg{op: writeOpBan, ban: req, result: result}}:
	case <-ctx.Done():
		return wire.BanResponse{}, ctx.Err()
	}
	select {
	case r := <-result:
		return r.ban, r.err
	case <-ctx.Done():
		return wire.BanResponse{}, ctx.Err()
	}
}

// Unban enqueues an unban write and blocks until it completes.
func (q *RPQueue) Unban(ctx context.Context, req wire.UnbanRequest) (wire.UnbanResponse, error) {
	result := make(chan writeResult, 1)
	select {
	case q.queue <- queueMsg{write: &writeMsg{op: writeOpUnban, unban: req, result: result}}:
	case <-ctx.Done():
		return wire.UnbanResponse{}, ctx.Err()
	}
	select {
	case r := <-result:
		return r.unban, r.err
	case <-ctx.Done():
		return wire.UnbanResponse{}, ctx.Err()
	}
}

// taskSet bounds the number of in-flight read goroutines, the Go analogue
// of rw_queue.rs's tokio::task::JoinSet: Spawn adds a task, WaitAny blocks
// until at least one finishes (freeing a slot), WaitAll drains every
// in-flight task before a write proceeds.
type taskSet struct {
	max  int
	n    int
	done chan struct{}
}

func newTaskSet(max int) *taskSet {
	return &taskSet{max: max, done: make(chan struct{}, max)}
}

func (t *taskSet) Full() bool { return t.n >= t.max }
func (t *taskSet) Len() int   { return t.n }

func (t *taskSet) Spawn(fn func()) {
	t.n++
	go func() {
		fn()
		t.done <- struct{}{}
	}()
}

// WaitAny blocks until at least one in-flight task completes.
func (t *taskSet) WaitAny() {
	if t.n == 0 {
		return
	}
	<-t.done
	t.n--
}

// WaitAll blocks until every in-flight task completes.
func (t *taskSet) WaitAll() {
	for t.n > 0 {
		<-t.done
		t.n--
	}
}
