package httpapi

import (
	"time"

	"github.com/dmitrijs2005/plantapi/internal/logging"
	"github.com/dmitrijs2005/plantapi/internal/server/models"
	"github.com/gin-gonic/gin"
)

// RouterDeps are the collaborators of NewRouter.
type RouterDeps struct {
	Handler       *Handler
	Authenticator Authenticator
	Metrics       *Metrics
	Logger        logging.Logger
	StoreTimeout  time.Duration
}

// multipartMemory bounds the in-memory part of an image upload.
const multipartMemory = 32 << 20

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = multipartMemory
	r.Use(gin.Recovery(), RequestLogger(d.Logger, d.Metrics))

	h := d.Handler
	user := Authenticate(d.Authenticator, d.Metrics, d.Logger, d.StoreTimeout)
	sync := AuthenticateSync(d.Authenticator, d.Metrics, d.Logger)
	chatbot := AuthenticateChatbot(d.Authenticator, d.Metrics, d.Logger)

	a := r.Group("/api/auth")
	a.POST("/register", h.Register)
	a.POST("/login", h.Login)
	a.POST("/refresh-token", h.RefreshToken)
	a.POST("/logout", user, h.Logout)
	a.POST("/forgotpassword", h.ForgotPassword)
	a.PUT("/passwordreset/:resetToken", h.ResetPassword)
	a.GET("/profile", user, h.GetProfile)
	a.POST("/profile", user, h.UpdateProfile)
	a.GET("/user/:userId", chatbot, h.GetUser)
	a.GET("/sync/users", sync, h.SyncUsers)

	p := r.Group("/api/plants")
	p.POST("/images", user, RequireRole(models.RoleCMS, models.RoleAdmin), h.UploadImages)

	if d.Metrics != nil {
		r.GET("/metrics", d.Metrics.Handler())
	}

	return r
}
