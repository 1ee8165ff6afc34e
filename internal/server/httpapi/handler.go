// Package httpapi exposes the auth core over HTTP with gin.
package httpapi

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/plantapi/internal/logging"
	"github.com/dmitrijs2005/plantapi/internal/server/auth"
	"github.com/dmitrijs2005/plantapi/internal/server/models"
	"github.com/dmitrijs2005/plantapi/internal/server/services"
	"github.com/gin-gonic/gin"
)

type UserAPI interface {
	Register(ctx context.Context, in services.RegisterInput) (*auth.TokenPair, *models.User, error)
	Login(ctx context.Context, login, password string) (*auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	Logout(ctx context.Context, id *models.Identity) error
	Profile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	SyncUsers(ctx context.Context, since time.Time) ([]*models.User, error)
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Identity, error)
	AuthenticateSync(token string) error
	AuthenticateChatbot(token string) error
}

type PasswordResetAPI interface {
	RequestReset(ctx context.Context, email string) error
	CompleteReset(ctx context.Context, rawToken, newPassword string) (*auth.TokenPair, error)
}

type ImageAPI interface {
	Upload(ctx context.Context, files []services.ImageFile) ([]services.UploadedImage, error)
}

type Handler struct {
	users  UserAPI
	resets PasswordResetAPI
	images ImageAPI
	logger logging.Logger
}

func NewHandler(users UserAPI, resets PasswordResetAPI, images ImageAPI, logger logging.Logger) *Handler {
	return &Handler{users: users, resets: resets, images: images, logger: logger}
}

type registerRequest struct {
	Username           string `json:"username" binding:"required"`
	Email              string `json:"email" binding:"required"`
	Password           string `json:"password" binding:"required"`
	LanguagePreference string `json:"language_preference"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

type profileRequest struct {
	Email                *string `json:"email"`
	FirstName            *string `json:"firstName"`
	LastName             *string `json:"lastName"`
	LanguagePreference   *string `json:"languagePreference"`
	VoicePreference      *string `json:"voicePreference"`
	ImageGenerationStyle *string `json:"imageGenerationStyle"`
}

type tokenResponse struct {
	Success      bool   `json:"success"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type profileResponse struct {
	Username             string `json:"username"`
	Email                string `json:"email"`
	FirstName            string `json:"firstName"`
	LastName             string `json:"lastName"`
	LanguagePreference   string `json:"languagePreference"`
	VoicePreference      string `json:"voicePreference"`
	ImageGenerationStyle string `json:"imageGenerationStyle"`
}

func tokens(p *auth.TokenPair) tokenResponse {
	return tokenResponse{Success: true, AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, "Missing required fields")
		return
	}

	pair, _, err := h.users.Register(c.Request.Context(), services.RegisterInput{
		Username:           req.Username,
		Email:              req.Email,
		Password:           req.Password,
		LanguagePreference: req.LanguagePreference,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, tokens(pair))
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, "Please provide a username and password")
		return
	}

	pair, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tokens(pair))
}

func (h *Handler) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, "Refresh token is required")
		return
	}

	pair, err := h.users.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tokens(pair))
}

func (h *Handler) Logout(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		abortJSON(c, http.StatusUnauthorized, msgAuthFailed)
		return
	}
	if err := h.users.Logout(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *Handler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, "A valid email is required")
		return
	}
	if err := h.resets.RequestReset(c.Request.Context(), req.Email); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": "Email Sent"})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, "Password is required")
		return
	}

	pair, err := h.resets.CompleteReset(c.Request.Context(), c.Param("resetToken"), req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"data":         "Password Updated Success",
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (h *Handler) GetProfile(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		abortJSON(c, http.StatusUnauthorized, msgAuthFailed)
		return
	}

	u, err := h.users.Profile(c.Request.Context(), id.UserID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profileResponse{
		Username:             u.UserName,
		Email:                u.Email,
		FirstName:            u.FirstName,
		LastName:             u.LastName,
		LanguagePreference:   u.LanguagePreference,
		VoicePreference:      u.VoicePreference,
		ImageGenerationStyle: u.ImageGenerationStyle,
	})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		abortJSON(c, http.StatusUnauthorized, msgAuthFailed)
		return
	}

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, "Invalid profile data")
		return
	}

	_, err := h.users.UpdateProfile(c.Request.Context(), id.UserID, models.ProfileUpdate{
		Email:                req.Email,
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		LanguagePreference:   req.LanguagePreference,
		VoicePreference:      req.VoicePreference,
		ImageGenerationStyle: req.ImageGenerationStyle,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully"})
}

func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.users.GetUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) SyncUsers(c *gin.Context) {
	var since time.Time
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			abortJSON(c, http.StatusBadRequest, "since must be an RFC3339 timestamp")
			return
		}
		since = t
	}

	users, err := h.users.SyncUsers(c.Request.Context(), since)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) UploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		abortJSON(c, http.StatusBadRequest, "Expected multipart form with images")
		return
	}

	headers := form.File["images"]
	files := make([]services.ImageFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, services.ImageFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}

	uploaded, err := h.images.Upload(c.Request.Context(), files)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, uploaded)
}
