// Package server is the HTTP boundary around the analysis core: request
// decoding, status-code mapping, optional identity, and best-effort history
// persistence. No pipeline logic lives here.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/verinews/verinews/internal/analyze"
	"github.com/verinews/verinews/internal/store"
)

// Analyzer is the core pipeline surface consumed by the boundary.
type Analyzer interface {
	AnalyzeURL(ctx context.Context, rawurl string) analyze.Verdict
	AnalyzePDF(ctx context.Context, data []byte) analyze.Verdict
}

// HistoryStore persists verdicts and serves the listing endpoint.
type HistoryStore interface {
	SaveAnalysis(ctx context.Context, rec store.Record) (int64, error)
	RecentHistory(ctx context.Context, limit int) ([]store.Record, error)
}

// UserStore manages accounts.
type UserStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (int64, error)
	UserByEmail(ctx context.Context, email string) (store.User, error)
}

// Options wires a Server.
type Options struct {
	Analyzer Analyzer
	// History and Users may be nil; the service then runs without
	// persistence or accounts.
	History        HistoryStore
	Users          UserStore
	Tokens         *TokenIssuer
	ModelID        string
	MaxUploadBytes int64
	Logger         zerolog.Logger
}

// Server hosts the HTTP API.
type Server struct {
	engine *gin.Engine
	opts   Options
	log    zerolog.Logger
}

// New builds the router.
func New(opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{engine: gin.New(), opts: opts, log: opts.Logger}

	s.engine.Use(gin.Recovery())

	s.engine.GET("/healthz", s.health)
	api := s.engine.Group("/api")
	{
		api.POST("/analyze/url", s.analyzeURL)
		api.POST("/analyze/pdf", s.analyzePDF)
		api.GET("/analyze/history", s.history)
		api.POST("/users/signup", s.signup)
		api.POST("/users/login", s.login)
	}
	return s
}

// Handler exposes the router for tests and for http.Server.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "online", "model": s.opts.ModelID})
}

type analyzeURLRequest struct {
	URL string `json:"url"`
}

func (s *Server) analyzeURL(c *gin.Context) {
	var req analyzeURLRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "url is required"})
		return
	}

	verdict := s.opts.Analyzer.AnalyzeURL(c.Request.Context(), req.URL)
	s.respond(c, verdict, "url", req.URL)
}

func (s *Server) analyzePDF(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "no PDF file uploaded"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.opts.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "could not read upload"})
		return
	}
	if int64(len(data)) > s.opts.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "file too large"})
		return
	}

	verdict := s.opts.Analyzer.AnalyzePDF(c.Request.Context(), data)
	s.respond(c, verdict, "pdf", header.Filename)
}

// respond maps a verdict onto HTTP semantics and persists successes.
func (s *Server) respond(c *gin.Context, v analyze.Verdict, inputType, inputValue string) {
	if !v.Success {
		c.JSON(statusFor(v.ErrorReason), gin.H{
			"success":     false,
			"errorReason": v.ErrorReason,
			"error":       v.ErrorReason.Message(),
		})
		return
	}

	body := gin.H{
		"success":    true,
		"label":      v.Label,
		"confidence": v.Confidence,
		"snippet":    v.Snippet,
	}
	if s.opts.History != nil {
		rec := store.Record{
			InputType:  inputType,
			InputValue: inputValue,
			Label:      string(v.Label),
			Confidence: v.Confidence,
			UserID:     s.userID(c),
		}
		if id, err := s.opts.History.SaveAnalysis(c.Request.Context(), rec); err != nil {
			// Persistence is best-effort; the verdict is still returned.
			s.log.Error().Err(err).Msg("history insert failed")
		} else {
			body["savedId"] = id
		}
	}
	c.JSON(http.StatusOK, body)
}

func statusFor(reason analyze.Reason) int {
	switch reason {
	case analyze.ReasonMissingInput:
		return http.StatusBadRequest
	case analyze.ReasonBlocked, analyze.ReasonTimeout, analyze.ReasonEmpty, analyze.ReasonUnreadable:
		return http.StatusUnprocessableEntity
	case analyze.ReasonServiceUnavailable:
		return http.StatusServiceUnavailable
	case analyze.ReasonAuthFailure, analyze.ReasonMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// userID extracts the optional bearer identity. Invalid tokens degrade to
// anonymous rather than failing the analysis.
func (s *Server) userID(c *gin.Context) *int64 {
	if s.opts.Tokens == nil {
		return nil
	}
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return nil
	}
	id, err := s.opts.Tokens.Verify(strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		s.log.Debug().Err(err).Msg("ignoring invalid bearer token")
		return nil
	}
	return &id
}

func (s *Server) history(c *gin.Context) {
	if s.opts.History == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "history is not configured"})
		return
	}
	records, err := s.opts.History.RecentHistory(c.Request.Context(), 20)
	if err != nil {
		s.log.Error().Err(err).Msg("history query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load history"})
		return
	}
	items := make([]gin.H, 0, len(records))
	for _, rec := range records {
		items = append(items, gin.H{
			"id":         rec.ID,
			"inputType":  rec.InputType,
			"inputValue": rec.InputValue,
			"label":      rec.Label,
			"confidence": rec.Confidence,
			"createdAt":  rec.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": items})
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) signup(c *gin.Context) {
	if s.opts.Users == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "accounts are not configured"})
		return
	}
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil ||
		req.Username == "" || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "all fields are required"})
		return
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}
	id, err := s.opts.Users.CreateUser(c.Request.Context(), req.Username, req.Email, hash)
	if err != nil {
		s.log.Error().Err(err).Msg("user insert failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "signup successful",
		"user":    gin.H{"id": id, "username": req.Username, "email": req.Email},
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(c *gin.Context) {
	if s.opts.Users == nil || s.opts.Tokens == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "accounts are not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}
	user, err := s.opts.Users.UserByEmail(c.Request.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	if !checkPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid password"})
		return
	}
	token, err := s.opts.Tokens.Issue(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "login successful",
		"token":   token,
		"user":    gin.H{"id": user.ID, "username": user.Username, "email": user.Email},
	})
}
