package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"notes-otp/internal/service"
)

// RouterConfig agrupa los ajustes transversales del router.
type RouterConfig struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	cfg RouterConfig,
	jwtSvc *service.JWTService,
	authH *AuthHandler,
	noteH *NoteHandler,
	healthH *HealthHandler,
) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Middlewares basicos: logging, recovery, CORS, timeout y JSON content-type.
	r.Use(
		zapLoggerMiddleware(logger),
		jsonRecoveryMiddleware(logger),
		corsMiddleware(cfg.AllowedOrigins),
		requestTimeoutMiddleware(cfg.RequestTimeout),
		jsonContentTypeMiddleware(),
	)

	r.GET("/", healthH.Root)
	r.GET("/healthz", healthH.Ready)

	auth := r.Group("/auth")
	auth.POST("/signup", authH.Signup)
	auth.POST("/signin", authH.SignIn)
	auth.POST("/verify-signin", authH.VerifySignIn)
	auth.POST("/request-otp", authH.RequestOTP)
	auth.POST("/resend-otp", authH.ResendOTP)

	notes := r.Group("/notes", JWTAuthMiddleware(jwtSvc))
	notes.POST("", noteH.CreateNote)
	notes.GET("", noteH.ListNotes)
	notes.DELETE("/:id", noteH.DeleteNote)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	return r
}

// jsonRecoveryMiddleware responde los panics con el mismo cuerpo de error que el resto de la API.
func jsonRecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	})
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}

// requestTimeoutMiddleware acota la duracion de las llamadas a la base y al correo.
func requestTimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cors.New(cfg)
	}
	cfg.AllowOrigins = origins
	return cors.New(cfg)
}
