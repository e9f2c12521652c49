package rest

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/wisteria-social/federation"
	"github.com/wisteria-social/federation/internal/domain"
	"github.com/wisteria-social/federation/internal/present/rest/presenter"
	"github.com/wisteria-social/federation/internal/service"
	"github.com/wisteria-social/federation/internal/usecase"
	"github.com/wisteria-social/federation/receiver"
	"github.com/wisteria-social/federation/salmon"
)

// 1MB is plenty for a single envelope.
const maxEnvelopeSize = 1 << 20

type Handler struct {
	config   domain.Config
	receive  *usecase.ReceiveUsecase
	delivery *usecase.DeliveryUsecase
	person   *usecase.PersonUsecase
	signal   *service.SignalService
}

func NewHandler(
	config domain.Config,
	receive *usecase.ReceiveUsecase,
	delivery *usecase.DeliveryUsecase,
	person *usecase.PersonUsecase,
	signal *service.SignalService,
) *Handler {
	return &Handler{
		config:   config,
		receive:  receive,
		delivery: delivery,
		person:   person,
		signal:   signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/.well-known/wisteria", h.handleWellKnown)
	e.POST("/receive/public", h.handleReceivePublic)
	e.POST("/receive/users/:guid", h.handleReceivePrivate)
	e.GET("/people/:diaspora_id", h.handlePerson)
	e.POST("/api/v1/register", h.handleRegister)
	e.GET("/api/v1/entities/recent", h.handleRecent)
	e.POST("/api/v1/envelopes/public", h.handleBuildPublic)
	e.POST("/api/v1/envelopes/private", h.handleBuildPrivate)
	e.GET("/realtime", h.handleRealtime)
}

type wellKnownEndpoint struct {
	Template string `json:"template"`
	Method   string `json:"method"`
}

func (h *Handler) handleWellKnown(c echo.Context) error {
	wellknown := echo.Map{
		"version":      "0.1",
		"domain":       h.config.FQDN,
		"registration": h.config.Registration,
		"endpoints": map[string]wellKnownEndpoint{
			"social.wisteria.receive.public": {
				Template: "/receive/public",
				Method:   "POST",
			},
			"social.wisteria.receive.private": {
				Template: "/receive/users/{guid}",
				Method:   "POST",
			},
			"social.wisteria.person": {
				Template: "/people/{diaspora_id}",
				Method:   "GET",
			},
			"social.wisteria.realtime": {
				Template: "/realtime",
				Method:   "GET",
			},
		},
	}
	return presenter.OK(c, wellknown)
}

func (h *Handler) handleReceivePublic(c echo.Context) error {
	ctx := c.Request().Context()

	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxEnvelopeSize))
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	if err := h.receive.ReceivePublic(ctx, raw); err != nil {
		return presentReceiveError(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleReceivePrivate(c echo.Context) error {
	ctx := c.Request().Context()

	recipient, err := h.person.ResolveGUID(ctx, c.Param("guid"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "unknown recipient")
		}
		return presenter.InternalError(c, err)
	}
	if !recipient.Local() {
		return presenter.NotFound(c, "unknown recipient")
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxEnvelopeSize))
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	if err := h.receive.ReceivePrivate(ctx, raw, recipient.DiasporaID); err != nil {
		return presentReceiveError(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handlePerson(c echo.Context) error {
	ctx := c.Request().Context()

	diasporaID, err := url.PathUnescape(c.Param("diaspora_id"))
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid diaspora id")
	}

	person, err := h.person.Resolve(ctx, diasporaID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "person not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, person)
}

type registerRequest struct {
	GUID     string `json:"guid"`
	Username string `json:"username"`
}

func (h *Handler) handleRegister(c echo.Context) error {
	ctx := c.Request().Context()

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.GUID == "" || req.Username == "" {
		return presenter.BadRequestMessage(c, "guid and username are required")
	}

	person, err := h.person.RegisterLocal(ctx, req.GUID, req.Username)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return presenter.Conflict(c, "already registered")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, person)
}

func (h *Handler) handleRecent(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 16
	limitStr := c.QueryParam("limit")
	if limitStr != "" {
		limitInt, err := strconv.Atoi(limitStr)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid limit parameter")
		}
		limit = limitInt
	}
	if limit <= 0 {
		limit = 16
	}
	if limit > 64 {
		limit = 64
	}

	results, err := h.receive.Recent(ctx, limit)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, results)
}

type buildRequest struct {
	EntityType string         `json:"entity_type"`
	EntityData map[string]any `json:"entity_data"`
	Author     string         `json:"author"`
	Recipient  string         `json:"recipient,omitempty"`
}

func (h *Handler) handleBuildPublic(c echo.Context) error {
	ctx := c.Request().Context()

	var req buildRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	envelope, err := h.delivery.BuildPublic(ctx, req.EntityType, req.EntityData, req.Author)
	if err != nil {
		return presentBuildError(c, err)
	}
	return c.Blob(http.StatusOK, "application/magic-envelope+json", envelope)
}

func (h *Handler) handleBuildPrivate(c echo.Context) error {
	ctx := c.Request().Context()

	var req buildRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.Recipient == "" {
		return presenter.BadRequestMessage(c, "recipient is required")
	}

	envelope, err := h.delivery.BuildPrivate(ctx, req.EntityType, req.EntityData, req.Author, req.Recipient)
	if err != nil {
		return presentBuildError(c, err)
	}
	return c.Blob(http.StatusOK, "application/magic-envelope+json", envelope)
}

func presentReceiveError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrDuplicate):
		return presenter.Accepted(c, "duplicate")
	case errors.Is(err, salmon.ErrMalformedEnvelope):
		return presenter.BadRequest(c, err)
	case errors.Is(err, salmon.ErrSignatureVerification),
		errors.Is(err, salmon.ErrDecryptionFailed),
		errors.Is(err, receiver.ErrSenderKeyNotFound),
		errors.Is(err, receiver.ErrRecipientKeyNotFound),
		errors.Is(err, federation.ErrValidation),
		errors.Is(err, federation.ErrUnknownEntityType),
		errors.Is(err, federation.ErrMalformedPayload):
		return presenter.UnprocessableEntity(c, err)
	default:
		return presenter.InternalError(c, err)
	}
}

func presentBuildError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, federation.ErrValidation),
		errors.Is(err, federation.ErrUnknownEntityType):
		return presenter.UnprocessableEntity(c, err)
	case errors.Is(err, domain.ErrNotFound):
		return presenter.NotFound(c, err.Error())
	default:
		return presenter.InternalError(c, err)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Request struct {
	Type  string   `json:"type"`
	Types []string `json:"types"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx := c.Request().Context()

	input := make(chan []string)
	defer close(input)
	output := make(chan domain.Event)
	defer close(output)

	go h.signal.Realtime(ctx, input, output)

	quit := make(chan struct{})

	go func() {
		for {
			var req Request
			err := ws.ReadJSON(&req)
			if err != nil {

				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}

				quit <- struct{}{}
				break
			}

			switch req.Type {
			case "listen":
				input <- req.Types
				slog.DebugContext(
					ctx, fmt.Sprintf("Socket subscribe: %s", req.Types),
					slog.String("module", "socket"),
				)
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
