package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/dyseo521/baepdoongi-bot-sub000/models"
	"github.com/dyseo521/baepdoongi-bot-sub000/pkg/engine"
	"github.com/dyseo521/baepdoongi-bot-sub000/pkg/ingest"
)

// server bundles the collaborators handlers need. Constructed once in main.
type server struct {
	eng    *engine.Engine
	parser *ingest.Parser
	cfg    config
}

func setupRoutes(r *gin.Engine, s *server) {
	r.POST("/register", registerHandler)
	r.POST("/login", loginHandler)
	r.POST("/refresh", refreshHandler)
	r.POST("/revoke_refresh", revokeRefreshHandler)

	// ingestion endpoints are called by the notification relay and the
	// public application form, not by operators
	r.POST("/webhook/deposit", s.depositWebhookHandler)
	r.POST("/applications", s.createApplicationHandler)

	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.GET("/applications", s.listApplicationsHandler)
	authGroup.GET("/applications/:id", s.getApplicationHandler)
	authGroup.GET("/deposits", s.listDepositsHandler)
	authGroup.GET("/matches", s.listMatchesHandler)
	authGroup.GET("/stats", s.statsHandler)
	authGroup.POST("/matches/manual", s.manualMatchHandler)
	authGroup.POST("/matches/unmatch", s.unmatchHandler)
	authGroup.POST("/applications/:id/invited", s.markInvitedHandler)
	authGroup.POST("/applications/:id/joined", s.markJoinedHandler)
	authGroup.DELETE("/applications/:id", s.deleteApplicationHandler)
	authGroup.DELETE("/deposits/:id", s.deleteDepositHandler)
	authGroup.GET("/events/pending", s.pendingEventsHandler)
	authGroup.POST("/events/:id/ack", s.ackEventHandler)
	authGroup.POST("/admin/reconcile", s.reconcileHandler)
	authGroup.POST("/admin/expire", s.expireHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)
		c.Set("username", username)
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

func meHandler(c *gin.Context) {
	usernameVal, _ := c.Get("username")
	if usernameVal == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "context missing username"})
		return
	}
	username := usernameVal.(string)
	c.JSON(http.StatusOK, gin.H{"username": username})
}

// operatorFromContext returns the username set by jwtAuthMiddleware.
func operatorFromContext(c *gin.Context) string {
	v, _ := c.Get("username")
	username, _ := v.(string)
	return username
}

// depositWebhookHandler ingests a raw bank push notification. Irrelevant or
// malformed payloads are dropped silently with a 200 so the relay can retry
// the whole batch without side effects.
func (s *server) depositWebhookHandler(c *gin.Context) {
	if s.cfg.WebhookToken != "" && c.GetHeader("X-Webhook-Token") != s.cfg.WebhookToken {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook token"})
		return
	}
	var req struct {
		Title string `json:"title"`
		Body  string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		// same contract as unparseable notifications: drop, never hard-fail
		log.Printf("SKIP notification: %v", err)
		c.JSON(http.StatusOK, gin.H{"ignored": true})
		return
	}
	n, err := s.parser.Parse(req.Title, req.Body)
	if err != nil {
		log.Printf("SKIP notification: %v", err)
		c.JSON(http.StatusOK, gin.H{"ignored": true})
		return
	}
	dep, out, err := s.eng.IngestDeposit(c.Request.Context(), n, req.Title+"\n"+req.Body, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingestion failed, retry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         dep.ID,
		"outcome":    out.Decision,
		"confidence": out.Confidence,
		"candidates": out.Candidates,
	})
}

// createApplicationHandler ingests a membership form submission. Unknown
// fields are preserved verbatim as metadata.
func (s *server) createApplicationHandler(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		if str, ok := v.(string); ok {
			fields[k] = str
			continue
		}
		// non-string form values are kept verbatim as JSON
		b, err := json.Marshal(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported value for field " + k})
			return
		}
		fields[k] = string(b)
	}
	sub, err := ingest.ValidateApplication(fields)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	app, out, err := s.eng.IngestApplication(c.Request.Context(), sub, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingestion failed, retry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         app.ID,
		"outcome":    out.Decision,
		"confidence": out.Confidence,
		"candidates": out.Candidates,
	})
}

func (s *server) listApplicationsHandler(c *gin.Context) {
	apps, err := s.eng.ListApplications(c.Request.Context(), models.ApplicationStatus(c.Query("status")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, apps)
}

// getApplicationHandler also serves the notifier's idempotent re-read of an
// already-matched application.
func (s *server) getApplicationHandler(c *gin.Context) {
	app, err := s.eng.GetApplication(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, app)
}

func (s *server) listDepositsHandler(c *gin.Context) {
	deps, err := s.eng.ListDeposits(c.Request.Context(), models.DepositStatus(c.Query("status")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, deps)
}

func (s *server) listMatchesHandler(c *gin.Context) {
	rows, err := s.eng.ListMatches(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *server) statsHandler(c *gin.Context) {
	stats, err := s.eng.ComputeStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *server) manualMatchHandler(c *gin.Context) {
	var req struct {
		ApplicationID string `json:"application_id" binding:"required"`
		DepositID     string `json:"deposit_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := s.eng.ManualMatch(c.Request.Context(), req.ApplicationID, req.DepositID, operatorFromContext(c))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *server) unmatchHandler(c *gin.Context) {
	var req struct {
		ApplicationID string `json:"application_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.eng.Unmatch(c.Request.Context(), req.ApplicationID, operatorFromContext(c)); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unmatched"})
}

func (s *server) markInvitedHandler(c *gin.Context) {
	app, err := s.eng.MarkInvited(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (s *server) markJoinedHandler(c *gin.Context) {
	app, err := s.eng.MarkJoined(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (s *server) deleteApplicationHandler(c *gin.Context) {
	if err := s.eng.DeleteApplication(c.Request.Context(), c.Param("id")); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (s *server) deleteDepositHandler(c *gin.Context) {
	if err := s.eng.DeleteDeposit(c.Request.Context(), c.Param("id")); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (s *server) pendingEventsHandler(c *gin.Context) {
	events, err := s.eng.PendingEvents(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, events)
}

func (s *server) ackEventHandler(c *gin.Context) {
	if err := s.eng.AckEvent(c.Request.Context(), c.Param("id")); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "acked"})
}

func (s *server) reconcileHandler(c *gin.Context) {
	if !isAdministrator(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	retried, voided, err := s.eng.Reconcile(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconcile failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"retried": retried, "voided": voided})
}

func (s *server) expireHandler(c *gin.Context) {
	if !isAdministrator(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	n, err := s.eng.ExpireDeposits(c.Request.Context(), time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "expire failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": n})
}

func isAdministrator(c *gin.Context) bool {
	role, _ := c.Get("role")
	return role == "administrator"
}

// respondEngineError maps engine errors onto status codes: missing ids are
// 404, already-processed entities are 409 so the operator sees why.
func respondEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
	}
}

func registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := RegisterOperator(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "operator registered successfully"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	op, err := Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	// Generate JWT token. Resolve role name from RoleID (we only store role_id).
	roleName := ""
	if op.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *op.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": op.Username,
		"role":     roleName,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	refreshToken, err := createAndStoreRefreshToken(op.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken})
}

// createAndStoreRefreshToken generates a random refresh token, stores its hash with expiry and returns the raw token string
func createAndStoreRefreshToken(operatorID uint) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	rt := models.RefreshToken{OperatorID: operatorID, TokenHash: th, ExpiresAt: time.Now().Add(30 * 24 * time.Hour)}
	if err := db.Create(&rt).Error; err != nil {
		return "", err
	}
	return token, nil
}

// helper to find refresh token record by raw token string
func findRefreshTokenByRaw(token string) (*models.RefreshToken, error) {
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	var rt models.RefreshToken
	if err := db.Where("token_hash = ?", th).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	var op models.Operator
	if err := db.First(&op, rt.OperatorID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "operator not found"})
		return
	}
	roleName := ""
	if op.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *op.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": op.Username,
		"role":     roleName,
		"exp":      time.Now().Add(15 * time.Minute).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	// rotate refresh token: revoke existing and create new one
	db.Model(&models.RefreshToken{}).Where("id = ?", rt.ID).Update("revoked", true)
	newRT, err := createAndStoreRefreshToken(op.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

// revokeRefreshHandler revokes a given refresh token (useful on logout)
func revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	rt.Revoked = true
	if err := db.Save(rt).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}
