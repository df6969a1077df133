package coordinator

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TaceoLabs/bitservice/internal/bserror"
	"github.com/TaceoLabs/bitservice/internal/logging"
	"github.com/TaceoLabs/bitservice/internal/metrics"
	"github.com/TaceoLabs/bitservice/internal/wire"
)

// Coordinator owns one RPQueue per relying party, created lazily on first
// use, mirroring the original_source's AppState holding a
// DashMap<Uuid, RpRwQueue>-equivalent.
type Coordinator struct {
	mu     sync.Mutex
	queues map[string]*RPQueue

	rpPeers            map[string][3]string
	pruneWriteInterval int
	maxNumReadTasks    int
	peerRequestTimeout time.Duration

	metrics *metrics.Coordinator
	log     logging.Logger
}

// New constructs a Coordinator. rpPeers maps a relying party id (as it
// appears in the request path) to its three peer base URLs.
func New(
	rpPeers map[string][3]string,
	pruneWriteInterval int,
	maxNumReadTasks int,
	peerRequestTimeout time.Duration,
	m *metrics.Coordinator,
	log logging.Logger,
) *Coordinator {
	return &Coordinator{
		queues:             make(map[string]*RPQueue),
		rpPeers:            rpPeers,
		pruneWriteInterval: pruneWriteInterval,
		maxNumReadTasks:    maxNumReadTasks,
		peerRequestTimeout: peerRequestTimeout,
		metrics:            m,
		log:                log,
	}
}

func (c *Coordinator) queueFor(rpID string) (*RPQueue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if q, ok := c.queues[rpID]; ok {
		return q, nil
	}
	urls, ok := c.rpPeers[rpID]
	if !ok {
		return nil, bserror.New(bserror.NotFound, "unknown relying party").WithField(rpID)
	}
	q := NewRPQueue(urls, c.pruneWriteInterval, c.maxNumReadTasks, c.peerRequestTimeout, c.metrics, c.log.With("rp_id", rpID))
	c.queues[rpID] = q
	return q, nil
}

// Register mounts the coordinator's relying-party-scoped read/write
// endpoints onto r, matching the client-facing surface spec.md section 6
// names ({server_url}/api/v1/{read,ban,unban}/{rp_id}).
func (c *Coordinator) Register(r gin.IRouter) {
	v1 := r.Group("/api/v1")
	v1.POST("/read/:rp_id", c.handleRead)
	v1.POST("/ban/:rp_id", c.handleBan)
	v1.POST("/unban/:rp_id", c.handleUnban)
}

func (c *Coordinator) handleRead(ctx *gin.Context) {
	q, err := c.queueFor(ctx.Param("rp_id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	var req wire.ReadRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, bserror.Wrap(bserror.BadRequest, err, "invalid request body"))
		return
	}
	c.metrics.ReadsQueued.Inc()
	res, err := q.Read(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, bserror.Wrap(bserror.UpstreamError, err, "read"))
		return
	}
	ctx.JSON(http.StatusOK, res)
}

func (c *Coordinator) handleBan(ctx *gin.Context) {
	q, err := c.queueFor(ctx.Param("rp_id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	var req wire.BanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, bserror.Wrap(bserror.BadRequest, err, "invalid request body"))
		return
	}
	c.metrics.WritesQueued.Inc()
	res, err := q.Ban(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, bserror.Wrap(bserror.UpstreamError, err, "ban"))
		return
	}
	ctx.JSON(http.StatusOK, res)
}

func (c *Coordinator) handleUnban(ctx *gin.Context) {
	q, err := c.queueFor(ctx.Param("rp_id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	var req wire.UnbanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, bserror.Wrap(bserror.BadRequest, err, "invalid request body"))
		return
	}
	c.metrics.WritesQueued.Inc()
	res, err := q.Unban(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, bserror.Wrap(bserror.UpstreamError, err, "unban"))
		return
	}
	ctx.JSON(http.StatusOK, res)
}

func respondError(ctx *gin.Context, err error) {
	kind := bserror.KindOf(err)
	ctx.JSON(bserror.HTTPStatus(kind), gin.H{"error": err.Error()})
}
