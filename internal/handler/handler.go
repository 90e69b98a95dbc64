package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"attendmark/internal/attendance"
	"attendmark/internal/auth"
	"attendmark/internal/metrics"
	"attendmark/internal/session"
	"attendmark/internal/user"
)

// Handler wires the HTTP surface to the services.
type Handler struct {
	users      *user.Service
	attendance *attendance.Service
	sessions   session.Manager

	jwtIssuer string
	jwtKey    string
	jwtTTL    time.Duration
}

// New creates a handler.
func New(users *user.Service, att *attendance.Service, sessions session.Manager, jwtIssuer, jwtKey string, jwtTTL time.Duration) *Handler {
	return &Handler{
		users:      users,
		attendance: att,
		sessions:   sessions,
		jwtIssuer:  jwtIssuer,
		jwtKey:     jwtKey,
		jwtTTL:     jwtTTL,
	}
}

// Register mounts all routes on the engine.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/", h.Health)

	att := r.Group("/api/attendance")
	att.POST("/start", h.StartSession)
	att.POST("/mark", h.MarkAttendance)
	att.POST("/stop", h.StopSession)
	// One parameterized route serves both lookups: gin cannot mix the
	// literal segment "all" with the :userId wildcard, so the literal is
	// dispatched by hand before the generic case.
	att.GET("/:userId/:date", h.AttendanceByPath)

	authGroup := r.Group("/api/auth")
	authGroup.POST("/register", h.RegisterUser)
	authGroup.POST("/login", h.Login)
	authGroup.GET("/me", auth.Bearer(h.jwtKey, h.jwtIssuer), h.Me)
}

// Health answers the root health probe.
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "Attendance Backend Running Successfully!")
}

// StartSession activates the attendance code for the current session.
func (h *Handler) StartSession(c *gin.Context) {
	var req struct {
		QRCode string `json:"qrCode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.QRCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "QR code is required"})
		return
	}
	if err := h.sessions.Start(c.Request.Context(), req.QRCode); err != nil {
		h.fail(c, err)
		return
	}
	metrics.Sessions.WithLabelValues("started").Inc()
	log.Printf("active code set to %s", req.QRCode)
	c.JSON(http.StatusOK, gin.H{"message": "Attendance session started", "qrCode": req.QRCode})
}

// StopSession clears the active code. Safe to call with no session running.
func (h *Handler) StopSession(c *gin.Context) {
	if err := h.sessions.Stop(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	metrics.Sessions.WithLabelValues("stopped").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "Attendance session stopped"})
}

// MarkAttendance validates a scanned code and records the user present.
func (h *Handler) MarkAttendance(c *gin.Context) {
	var req struct {
		UserID      string `json:"userId"`
		ScannedCode string `json:"scannedCode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "userId and scannedCode are required"})
		return
	}

	rec, created, err := h.attendance.Mark(c.Request.Context(), req.UserID, req.ScannedCode)
	if err != nil {
		metrics.Marks.WithLabelValues("rejected").Inc()
		h.fail(c, err)
		return
	}
	if !created {
		metrics.Marks.WithLabelValues("duplicate").Inc()
		c.JSON(http.StatusOK, gin.H{"message": "Already marked present for today"})
		return
	}
	metrics.Marks.WithLabelValues("created").Inc()
	log.Printf("attendance marked for user %s on %s", rec.UserID, rec.Date)
	c.JSON(http.StatusOK, gin.H{"message": "Attendance marked successfully!"})
}

// AttendanceByPath serves both GET /api/attendance/all/:date and
// GET /api/attendance/:userId/:date. The literal "all" wins over a user id,
// matching the required route precedence.
func (h *Handler) AttendanceByPath(c *gin.Context) {
	userID := c.Param("userId")
	date := c.Param("date")

	if userID == "all" {
		h.allByDate(c, date)
		return
	}

	rec, err := h.attendance.ByUserAndDate(c.Request.Context(), userID, date)
	if err != nil {
		if errors.Is(err, attendance.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "No record found for this date"})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Record fetched", "data": rec})
}

func (h *Handler) allByDate(c *gin.Context, date string) {
	entries, err := h.attendance.AllByDate(c.Request.Context(), date)
	if err != nil {
		switch {
		case errors.Is(err, attendance.ErrMissingDate):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Date is required"})
		case errors.Is(err, attendance.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "No records found for this date"})
		default:
			h.fail(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance records fetched successfully", "data": entries})
}

// RegisterUser creates an account.
func (h *Handler) RegisterUser(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
		return
	}

	summary, err := h.users.Register(c.Request.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": summary})
}

// Login authenticates a user and issues an access token.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email and password are required"})
		return
	}

	summary, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		metrics.Logins.WithLabelValues("failed").Inc()
		h.fail(c, err)
		return
	}

	token, err := auth.Issue(summary.ID, summary.Email, summary.Role, h.jwtIssuer, h.jwtKey, h.jwtTTL)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.Logins.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "user": summary, "token": token.Value})
}

// Me echoes the authenticated user from a bearer token.
func (h *Handler) Me(c *gin.Context) {
	claimsAny, _ := c.Get(auth.ClaimsKey)
	claims, ok := claimsAny.(auth.Claims)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
		return
	}
	summary, err := h.users.Get(c.Request.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": summary})
}

// fail maps service errors to the wire contract. Anything unrecognized is a
// 500 with a generic body; details stay in the log.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrEmptyCode):
		c.JSON(http.StatusBadRequest, gin.H{"message": "QR code is required"})
	case errors.Is(err, attendance.ErrNoActiveSession):
		c.JSON(http.StatusBadRequest, gin.H{"message": "No active attendance session"})
	case errors.Is(err, attendance.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid or expired QR code"})
	case errors.Is(err, attendance.ErrMissingUser):
		c.JSON(http.StatusBadRequest, gin.H{"message": "userId is required"})
	case errors.Is(err, user.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
	case errors.Is(err, user.ErrDuplicateUser):
		c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists"})
	case errors.Is(err, user.ErrNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"message": "User not found"})
	case errors.Is(err, user.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid password"})
	default:
		log.Printf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
	}
}
