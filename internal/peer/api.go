package peer

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/TaceoLabs/bitservice/internal/bserror"
	"github.com/TaceoLabs/bitservice/internal/crypto"
	"github.com/TaceoLabs/bitservice/internal/ids"
	"github.com/TaceoLabs/bitservice/internal/obliviousmap"
	"github.com/TaceoLabs/bitservice/internal/transport"
	"github.com/TaceoLabs/bitservice/internal/wire"
)

// API wires the peer's gin router. It holds the cryptographic identity used
// to unseal incoming shares (mirroring CryptoDevice in the
// original_source's api/v1.rs) alongside the orchestrator Service.
type API struct {
	service  *Service
	identity crypto.PrivateKey
}

// NewAPI builds an API for service, unsealing shares with identity.
func NewAPI(service *Service, identity crypto.PrivateKey) *API {
	return &API{service: service, identity: identity}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Register mounts the peer's four request endpoints and its
// connection-upgrade endpoint onto r, matching api/v1.rs's route table.
func (a *API) Register(r gin.IRouter) {
	v1 := r.Group("/api/v1")
	v1.POST("/read/:request_id", a.handleRead)
	v1.POST("/ban/:request_id", a.handleBan)
	v1.POST("/unban/:request_id", a.handleUnban)
	v1.POST("/prune/:request_id", a.handlePrune)
	v1.GET("/ws", a.handleWebSocket)
}

func (a *API) handleRead(c *gin.Context) {
	requestID, err := ids.ParseRequestID(c.Param("request_id"))
	if err != nil {
		respondError(c, bserror.Wrap(bserror.BadRequest, err, "invalid request_id"))
		return
	}

	var body wire.PeerReadRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, bserror.Wrap(bserror.BadRequest, err, "invalid request body"))
		return
	}

	key, err := wire.OpenKeyShare(body.Key, a.identity, "key")
	if err != nil {
		respondError(c, err)
		return
	}
	r, err := wire.OpenFieldShare(body.R, a.identity, "r")
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := a.service.Read(c.Request.Context(), requestID, obliviousmap.ReadRequest{Key: key, R: r})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, wire.PeerReadResponse{
		Value:      wire.NewFieldElement(res.ReadShare),
		Proof:      res.Proof,
		Root:       wire.NewFieldElement(res.Root),
		Commitment: wire.NewFieldElement(res.Commitment),
	})
}

func (a *API) handleBan(c *gin.Context) {
	a.handleWrite(c, a.service.Ban)
}

func (a *API) handleUnban(c *gin.Context) {
	a.handleWrite(c, a.service.Unban)
}

func (a *API) handleWrite(c *gin.Context, op func(ctx context.Context, requestID ids.RequestID, req obliviousmap.WriteRequest) (obliviousmap.WriteResult, error)) {
	requestID, err := ids.ParseRequestID(c.Param("request_id"))
	if err != nil {
		respondError(c, bserror.Wrap(bserror.BadRequest, err, "invalid request_id"))
		return
	}

	var body wire.PeerBanRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, bserror.Wrap(bserror.BadRequest, err, "invalid request body"))
		return
	}

	key, err := wire.OpenKeyShare(body.Key, a.identity, "key")
	if err != nil {
		respondError(c, err)
		return
	}
	value, err := wire.OpenFieldShare(body.Value, a.identity, "value")
	if err != nil {
		respondError(c, err)
		return
	}
	rKey, err := wire.OpenFieldShare(body.RKey, a.identity, "r_key")
	if err != nil {
		respondError(c, err)
		return
	}
	rValue, err := wire.OpenFieldShare(body.RValue, a.identity, "r_value")
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := op(c.Request.Context(), requestID, obliviousmap.WriteRequest{
		Key: key, Value: value, RKey: rKey, RValue: rValue,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, wire.PeerBanResponse{
		Proof:           res.Proof,
		OldRoot:         wire.NewFieldElement(res.OldRoot),
		NewRoot:         wire.NewFieldElement(res.NewRoot),
		CommitmentKey:   wire.NewFieldElement(res.CommitmentKey),
		CommitmentValue: wire.NewFieldElement(res.CommitmentValue),
	})
}

func (a *API) handlePrune(c *gin.Context) {
	requestID, err := ids.ParseRequestID(c.Param("request_id"))
	if err != nil {
		respondError(c, bserror.Wrap(bserror.BadRequest, err, "invalid request_id"))
		return
	}
	if err := a.service.Prune(c.Request.Context(), requestID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.PeerPruneResponse{})
}

// handleWebSocket upgrades the connection and rendezvouses it into the
// session registry, keyed by the session id carried in the upgrading
// request's session_id header.
func (a *API) handleWebSocket(c *gin.Context) {
	sessionID, err := ids.ParseRequestID(c.GetHeader("session_id"))
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	t := transport.NewWebSocket(conn)
	if err := a.service.Sessions().Put(sessionID, t); err != nil {
		t.Close()
	}
}

func respondError(c *gin.Context, err error) {
	kind := bserror.KindOf(err)
	c.JSON(bserror.HTTPStatus(kind), gin.H{"error": err.Error()})
}
