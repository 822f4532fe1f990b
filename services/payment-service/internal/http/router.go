package httpx

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Doetheman/community-platform-template/pkg/auth"
	"github.com/Doetheman/community-platform-template/pkg/obs"
	"github.com/Doetheman/community-platform-template/services/payment-service/internal/middlewares"
)

type RouterDeps struct {
	Logger   zerolog.Logger
	Verifier auth.Verifier
	Callable *CallableServer
	Webhook  *WebhookServer
	Metrics  *obs.Metrics
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), obs.RequestLogger(d.Logger))

	r.GET("/healthz", obs.Healthz)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	// raw body: the handler reads and verifies it before any decoding
	r.POST("/webhooks/stripe", d.Webhook.Handler)

	callable := r.Group("/callable")
	callable.Use(middlewares.Identify(d.Verifier))
	{
		callable.POST("/createCheckoutSession", d.Callable.CreateCheckoutSession)
	}
	return r
}
