package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Doetheman/community-platform-template/pkg/obs"
	"github.com/Doetheman/community-platform-template/services/payment-service/internal/service"
)

// Callable statuses follow the Firebase callable protocol.
const (
	StatusUnauthenticated = "UNAUTHENTICATED"
	StatusNotFound        = "NOT_FOUND"
	StatusInvalidArgument = "INVALID_ARGUMENT"
	StatusInternal        = "INTERNAL"
)

type callableRequest struct {
	Data json.RawMessage `json:"data"`
}

type CallableError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type CheckoutCreator interface {
	CreateSession(ctx context.Context, in service.CreateSessionInput) (*service.CreateSessionOutput, error)
}

type CallableServer struct {
	checkout CheckoutCreator
	metrics  *obs.Metrics
}

func NewCallableServer(checkout CheckoutCreator, m *obs.Metrics) *CallableServer {
	return &CallableServer{checkout: checkout, metrics: m}
}

// checkoutPayload is the callable "data" object. A uid field sent by the
// client is deliberately not decoded.
type checkoutPayload struct {
	EventID    string `json:"eventId"`
	Amount     int64  `json:"amount"`
	EventTitle string `json:"eventTitle"`
}

// CreateCheckoutSession handles POST /callable/createCheckoutSession.
func (s *CallableServer) CreateCheckoutSession(c *gin.Context) {
	var req callableRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Data) == 0 {
		s.fail(c, http.StatusBadRequest, StatusInvalidArgument, "Request body must be a JSON object with a data field")
		return
	}
	var in checkoutPayload
	if err := json.Unmarshal(req.Data, &in); err != nil {
		s.fail(c, http.StatusBadRequest, StatusInvalidArgument, "Invalid checkout request")
		return
	}

	out, err := s.checkout.CreateSession(c.Request.Context(), service.CreateSessionInput{
		EventID:    in.EventID,
		Amount:     in.Amount,
		EventTitle: in.EventTitle,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.count("created")
	c.JSON(http.StatusOK, gin.H{"result": out})
}

func (s *CallableServer) writeError(c *gin.Context, err error) {
	var svcErr *service.Error
	msg := "INTERNAL"
	if errors.As(err, &svcErr) {
		msg = svcErr.Msg
	}
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		s.fail(c, http.StatusUnauthorized, StatusUnauthenticated, msg)
	case errors.Is(err, service.ErrNotFound):
		s.fail(c, http.StatusNotFound, StatusNotFound, msg)
	case errors.Is(err, service.ErrInvalidArgument):
		s.fail(c, http.StatusBadRequest, StatusInvalidArgument, msg)
	default:
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("[callable] createCheckoutSession failed")
		s.fail(c, http.StatusInternalServerError, StatusInternal, msg)
	}
}

func (s *CallableServer) fail(c *gin.Context, code int, status, msg string) {
	s.count(status)
	c.JSON(code, gin.H{"error": CallableError{Status: status, Message: msg}})
}

func (s *CallableServer) count(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.CheckoutSessions.WithLabelValues(outcome).Inc()
}
