// Package attestserver serves stored attestations over HTTP.
package attestserver

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/buaazp/fasthttprouter"
	"github.com/korthochain/korthoattest/pkg/attestation"
	"github.com/korthochain/korthoattest/pkg/logger"
	"github.com/korthochain/korthoattest/pkg/wallet"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// NewServer creates a server for w. pub may be nil, in which case accepted
// attestations are only stored.
func NewServer(w *wallet.Wallet, pub Publisher, cfg Config) *Server {
	def := DefaultConfig()
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = def.MaxBodySize
	}
	if cfg.RateLimit <= 0 || cfg.RateBurst <= 0 {
		cfg.RateLimit, cfg.RateBurst = def.RateLimit, def.RateBurst
	}

	s := &Server{
		address:   cfg.Address,
		wallet:    w,
		publisher: pub,
		r:         fasthttprouter.New(),
		limiter:   newIPRateLimiter(cfg.RateLimit, cfg.RateBurst),
		whiteList: make(map[string]struct{}, len(cfg.WhiteList)),
	}
	for _, ip := range cfg.WhiteList {
		s.whiteList[ip] = struct{}{}
	}

	s.r.POST("/attestation", s.ipInterceptor(s.PutAttestation))
	s.r.GET("/attestation/:id", s.ipInterceptor(s.GetAttestation))
	s.r.GET("/attestation/:id/raw", s.ipInterceptor(s.GetRawAttestation))
	s.r.GET("/attestation/:id/peers", s.ipInterceptor(s.GetPeers))
	s.r.GET("/attestations", s.ipInterceptor(s.ListAttestations))

	s.srv = &fasthttp.Server{
		Handler:            s.r.Handler,
		MaxRequestBodySize: cfg.MaxBodySize,
		Name:               "korthoattest",
	}
	return s
}

// SetLocator enables peer lookups.
func (s *Server) SetLocator(l Locator) {
	s.locator = l
}

func (s *Server) Handler() fasthttp.RequestHandler {
	return s.r.Handler
}

// RunServer listens on the configured address until Shutdown is called.
func (s *Server) RunServer() error {
	logger.Info("attestation server listening", zap.String("address", s.address))
	if err := s.srv.ListenAndServe(s.address); err != nil {
		logger.Error("failed to listen port", zap.Error(err), zap.String("port", s.address))
		return err
	}
	return nil
}

func (s *Server) Shutdown() error {
	return s.srv.Shutdown()
}

func (s *Server) ipInterceptor(h fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ip := ctx.RemoteIP().String()
		if _, ok := s.whiteList[ip]; !ok {
			if !s.limiter.getLimiter(ip).Allow() {
				logger.Debug("ip limited", zap.String("ip", ip))
				writeJSON(ctx, http.StatusTooManyRequests, &resultInfo{ErrorCode: ErrLimited, ErrorMsg: "request too frequently"})
				return
			}
		}
		h(ctx)
	}
}

// PutAttestation stores the serialized attestation in the request body and
// gossips it.
func (s *Server) PutAttestation(ctx *fasthttp.RequestCtx) {
	id, att, err := s.wallet.PutBytes(ctx.PostBody())
	if err != nil {
		if att == nil {
			writeJSON(ctx, http.StatusBadRequest, &resultInfo{ErrorCode: ErrData, ErrorMsg: err.Error()})
			return
		}
		writeJSON(ctx, http.StatusInternalServerError, &resultInfo{ErrorCode: ErrInternal, ErrorMsg: err.Error()})
		return
	}

	if s.publisher != nil {
		if err := s.publisher.PublishAttestation(att); err != nil {
			logger.Warn("failed to publish attestation", zap.String("id", id.String()), zap.Error(err))
		}
	}

	writeJSON(ctx, http.StatusOK, &resultID{ErrorCode: Success, ID: id.String()})
}

func (s *Server) GetAttestation(ctx *fasthttp.RequestCtx) {
	e, ok := s.entry(ctx)
	if !ok {
		return
	}

	data, err := e.Attestation.Serialize()
	if err != nil {
		writeJSON(ctx, http.StatusInternalServerError, &resultInfo{ErrorCode: ErrInternal, ErrorMsg: err.Error()})
		return
	}

	pk := e.Attestation.PublicKey
	writeJSON(ctx, http.StatusOK, &resultAttestation{
		ErrorCode: Success,
		Attestation: &AttestationInfo{
			ID:       e.ID.String(),
			Received: e.Received.Unix(),
			N:        pk.N.String(),
			P:        pk.P.String(),
			BitPairs: len(e.Attestation.BitPairs),
			Data:     hex.EncodeToString(data),
		},
	})
}

func (s *Server) GetRawAttestation(ctx *fasthttp.RequestCtx) {
	e, ok := s.entry(ctx)
	if !ok {
		return
	}

	data, err := e.Attestation.Serialize()
	if err != nil {
		writeJSON(ctx, http.StatusInternalServerError, &resultInfo{ErrorCode: ErrInternal, ErrorMsg: err.Error()})
		return
	}

	ctx.SetContentType("application/octet-stream")
	ctx.SetStatusCode(http.StatusOK)
	ctx.Write(data)
}

// GetPeers lists the peers that announced the attestation.
func (s *Server) GetPeers(ctx *fasthttp.RequestCtx) {
	raw, _ := ctx.UserValue("id").(string)
	id, err := attestation.ParseID(raw)
	if err != nil {
		writeJSON(ctx, http.StatusBadRequest, &resultInfo{ErrorCode: ErrData, ErrorMsg: err.Error()})
		return
	}
	if s.locator == nil {
		writeJSON(ctx, http.StatusNotFound, &resultInfo{ErrorCode: ErrNotFound, ErrorMsg: "peer lookup disabled"})
		return
	}

	points, err := s.locator.Lookup(ctx, id.Bytes())
	if err != nil {
		writeJSON(ctx, http.StatusInternalServerError, &resultInfo{ErrorCode: ErrInternal, ErrorMsg: err.Error()})
		return
	}

	res := &resultPeers{ErrorCode: Success, Peers: make([]*PeerInfo, 0, len(points))}
	for _, ip := range points {
		res.Peers = append(res.Peers, &PeerInfo{
			Address:   ip.Peer.Address.String(),
			PublicKey: hex.EncodeToString(ip.Peer.PublicKey),
			LastSeen:  ip.LastSeen,
		})
	}
	writeJSON(ctx, http.StatusOK, res)
}

func (s *Server) ListAttestations(ctx *fasthttp.RequestCtx) {
	ids, err := s.wallet.List()
	if err != nil {
		writeJSON(ctx, http.StatusInternalServerError, &resultInfo{ErrorCode: ErrInternal, ErrorMsg: err.Error()})
		return
	}

	res := &resultIDs{ErrorCode: Success, IDs: make([]string, 0, len(ids))}
	for _, id := range ids {
		res.IDs = append(res.IDs, id.String())
	}
	writeJSON(ctx, http.StatusOK, res)
}

// entry loads the attestation named by the id path parameter, writing an error
// response when it cannot.
func (s *Server) entry(ctx *fasthttp.RequestCtx) (*wallet.Entry, bool) {
	raw, _ := ctx.UserValue("id").(string)
	id, err := attestation.ParseID(raw)
	if err != nil {
		writeJSON(ctx, http.StatusBadRequest, &resultInfo{ErrorCode: ErrData, ErrorMsg: err.Error()})
		return nil, false
	}

	e, err := s.wallet.Get(id)
	if errors.Is(err, wallet.ErrNotFound) {
		writeJSON(ctx, http.StatusNotFound, &resultInfo{ErrorCode: ErrNotFound, ErrorMsg: err.Error()})
		return nil, false
	}
	if err != nil {
		writeJSON(ctx, http.StatusInternalServerError, &resultInfo{ErrorCode: ErrInternal, ErrorMsg: err.Error()})
		return nil, false
	}
	return e, true
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Error("failed to encode response", zap.Error(err))
		ctx.SetStatusCode(http.StatusInternalServerError)
		return
	}

	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.Write(body)
}
