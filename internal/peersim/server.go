package peersim

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Klingon-tech/klingnet-lite/internal/log"
	"github.com/Klingon-tech/klingnet-lite/internal/peer"
	"github.com/Klingon-tech/klingnet-lite/internal/quorum"
	"github.com/Klingon-tech/klingnet-lite/pkg/crypto"
	"github.com/Klingon-tech/klingnet-lite/pkg/tx"
)

// Server answers the peer wire protocol from a Ledger.
type Server struct {
	engine   *gin.Engine
	ledger   *Ledger
	peers    []peer.Peer
	faulty   bool
	verifier crypto.Verifier
}

// Option configures a Server.
type Option func(*Server)

// WithPeers sets the list returned by /discover/nodes.
func WithPeers(peers []peer.Peer) Option {
	return func(s *Server) { s.peers = append([]peer.Peer(nil), peers...) }
}

// WithFaulty makes the server lie: balances are inflated and transaction
// verdicts inverted.
func WithFaulty(faulty bool) Option {
	return func(s *Server) { s.faulty = faulty }
}

// NewServer creates a server over ledger.
func NewServer(ledger *Ledger, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:   gin.New(),
		ledger:   ledger,
		peers:    []peer.Peer{},
		verifier: crypto.ECDSAVerifier{},
	}
	for _, opt := range opts {
		opt(s)
	}
	// Addresses arrive path-escaped.
	s.engine.UseRawPath = true
	s.engine.UnescapePathValues = true

	s.engine.Use(recovery(), requestLogger())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "faulty": s.faulty})
	})
	s.engine.GET("/discover/nodes", s.discover)
	s.engine.GET(quorum.PathUTXOs+":address", s.confirmed)
	s.engine.GET(quorum.PathMempool+":address", s.pending)
	s.engine.POST(quorum.PathValidateTx, s.validate)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr until the server fails.
func (s *Server) Run(addr string) error {
	log.Sim.Info().Str("addr", addr).Bool("faulty", s.faulty).Msg("peer simulator listening")
	return s.engine.Run(addr)
}

// GET /discover/nodes
func (s *Server) discover(c *gin.Context) {
	c.JSON(http.StatusOK, s.peers)
}

// GET /utxos/address/:address
func (s *Server) confirmed(c *gin.Context) {
	c.JSON(http.StatusOK, s.report(s.ledger.Confirmed(c.Param("address"))))
}

// GET /utxos_mempool/address/:address
func (s *Server) pending(c *gin.Context) {
	c.JSON(http.StatusOK, s.report(s.ledger.Pending(c.Param("address"))))
}

func (s *Server) report(utxos []tx.UTXO) []tx.UTXO {
	if !s.faulty {
		return utxos
	}
	for i := range utxos {
		utxos[i].Amount = utxos[i].Amount*10 + 1
	}
	return append(utxos, tx.UTXO{Amount: 1_000_000, Address: "inflated"})
}

// POST /validate/tx
func (s *Server) validate(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var t tx.Transaction
	if err := json.Unmarshal(body, &t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction json"})
		return
	}

	verdict := gin.H{}
	id, err := tx.FromTransaction(&t, s.verifier)
	if err == nil {
		err = s.ledger.Apply(id)
	}
	valid := err == nil
	if valid {
		verdict["txid"] = id.TxID().String()
	} else {
		verdict["error"] = err.Error()
	}
	if s.faulty {
		valid = !valid
	}
	verdict["valid"] = valid

	log.Sim.Debug().Bool("valid", valid).Err(err).Msg("validated transaction")
	c.JSON(http.StatusOK, verdict)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Sim.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Sim.Error().Interface("panic", err).Msg("handler panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}
