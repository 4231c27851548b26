package handler

import (
	"net/http"
	"strings"
	"time"

	"reunite/backend/internal/config"
	"reunite/backend/internal/models"
	"reunite/backend/internal/principal"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const principalKey = "principal"

// generateToken issues a signed JWT for the principal.
func (h *Handler) generateToken(p principal.Principal) (string, error) {
	claims := p.Claims()
	claims["exp"] = time.Now().Add(config.TokenTTL).Unix()
	claims["iss"] = "reunite-service"

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.JWTSecret)
}

// parseToken verifies a JWT and rebuilds the caller's Principal.
func (h *Handler) parseToken(tokenString string) (principal.Principal, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return h.JWTSecret, nil
	})
	if err != nil {
		return principal.Principal{}, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return principal.Principal{}, jwt.ErrTokenInvalidClaims
	}
	return principal.FromClaims(claims)
}

// AuthMiddleware parses the bearer token and stores the Principal on the
// request context. Role checks happen once here and in RequireModerator,
// never ad hoc in handlers.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token missing"})
			return
		}
		p, err := h.parseToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireModerator aborts unless the caller may moderate.
func (h *Handler) RequireModerator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentPrincipal(c).CanModerate() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

func currentPrincipal(c *gin.Context) principal.Principal {
	p, _ := c.MustGet(principalKey).(principal.Principal)
	return p
}

type registerVolunteerRequest struct {
	Name       string   `json:"name" binding:"required"`
	Email      string   `json:"email" binding:"required,email"`
	Password   string   `json:"password" binding:"required,min=6"`
	Phone      string   `json:"phone" binding:"required"`
	Gender     string   `json:"gender"`
	City       string   `json:"city"`
	State      string   `json:"state"`
	IDType     string   `json:"idType" binding:"required"`
	IDNumber   string   `json:"idNumber" binding:"required"`
	Occupation string   `json:"occupation"`
	Skills     []string `json:"skills"`
	SecretCode string   `json:"secretCode"`
}

// RegisterVolunteer creates a pending volunteer account. An admin has to
// approve it before login succeeds.
func (h *Handler) RegisterVolunteer(c *gin.Context) {
	var req registerVolunteerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.VolunteerSecret != "" && req.SecretCode != h.VolunteerSecret {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid volunteer authorization code"})
		return
	}

	// Accounts are stored with lowercased emails; normalize before the
	// duplicate check so a mixed-case re-registration hits it too.
	email := strings.ToLower(req.Email)
	existing, err := h.Storage.GetVolunteerByEmail(email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if existing != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "volunteer already exists"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.writeError(c, err)
		return
	}

	v := &models.Volunteer{
		Name:       req.Name,
		Email:      email,
		Password:   string(hashed),
		Phone:      req.Phone,
		Gender:     req.Gender,
		City:       req.City,
		State:      req.State,
		IDType:     req.IDType,
		IDNumber:   req.IDNumber,
		Occupation: req.Occupation,
		Skills:     req.Skills,
		Status:     models.VolunteerPending,
	}
	if err := h.Storage.SaveVolunteer(v); err != nil {
		h.writeError(c, err)
		return
	}
	if h.Notifier != nil {
		h.Notifier.VolunteerPending(v)
	}

	c.JSON(http.StatusCreated, gin.H{"message": "volunteer registered, awaiting approval", "id": v.ID})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginVolunteer is the admission gate for volunteers: any status other
// than active is denied, and the current status is surfaced so the client
// can render "pending" vs "rejected" distinctly.
func (h *Handler) LoginVolunteer(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v, err := h.Storage.GetVolunteerByEmail(strings.ToLower(req.Email))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if v == nil || bcrypt.CompareHashAndPassword([]byte(v.Password), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !v.IsApproved() {
		c.JSON(http.StatusForbidden, gin.H{
			"error":  "account not active",
			"status": v.Status,
		})
		return
	}

	token, err := h.generateToken(principal.Principal{ID: v.ID, Role: principal.RoleVolunteer})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "name": v.Name})
}

type registerFamilyRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone" binding:"required"`
}

// RegisterFamily creates a pending family account.
func (h *Handler) RegisterFamily(c *gin.Context) {
	var req registerFamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(req.Email)
	existing, err := h.Storage.GetFamilyByEmail(email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if existing != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "family already exists"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.writeError(c, err)
		return
	}

	f := &models.Family{
		Name:     req.Name,
		Email:    email,
		Password: string(hashed),
		Phone:    req.Phone,
		Status:   models.FamilyPending,
	}
	if err := h.Storage.SaveFamily(f); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "family registered, awaiting approval", "id": f.ID})
}

// LoginFamily mirrors the volunteer admission gate for family accounts.
func (h *Handler) LoginFamily(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	f, err := h.Storage.GetFamilyByEmail(strings.ToLower(req.Email))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if f == nil || bcrypt.CompareHashAndPassword([]byte(f.Password), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !f.IsApproved() {
		c.JSON(http.StatusForbidden, gin.H{
			"error":  "account not approved",
			"status": f.Status,
		})
		return
	}

	token, err := h.generateToken(principal.Principal{ID: f.ID, Role: principal.RoleFamily})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "name": f.Name})
}

type registerAdminRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	SecretKey string `json:"secretKey" binding:"required"`
}

// RegisterAdmin creates an admin account, gated by the deployment secret.
func (h *Handler) RegisterAdmin(c *gin.Context) {
	var req registerAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.SecretKey != h.AdminSecretKey {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret key"})
		return
	}

	email := strings.ToLower(req.Email)
	existing, err := h.Storage.GetAdminByEmail(email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if existing != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "admin already exists"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.writeError(c, err)
		return
	}
	a := &models.Admin{Email: email, Password: string(hashed)}
	if err := h.Storage.SaveAdmin(a); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "admin registered"})
}

func (h *Handler) LoginAdmin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a, err := h.Storage.GetAdminByEmail(strings.ToLower(req.Email))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if a == nil || bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.generateToken(principal.Principal{ID: a.ID, Role: principal.RoleAdmin})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "name": a.Email})
}
