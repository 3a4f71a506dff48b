package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/mercatokart/storefront/internal/cart/otel"
	"github.com/mercatokart/storefront/internal/cart/service"
	"github.com/mercatokart/storefront/cart/pkg/request"
	"github.com/mercatokart/storefront/internal/config"
	inErrors "github.com/mercatokart/storefront/internal/errors"
	inHttp "github.com/mercatokart/storefront/internal/http"
	"github.com/mercatokart/storefront/internal/log"
	"github.com/mercatokart/storefront/internal/middleware"
	"github.com/mercatokart/storefront/internal/session"
	"github.com/mercatokart/storefront/internal/token"
)

type CartController struct {
	service *service.CartService
}

func AttachCartController(
	router *mux.Router,
	service *service.CartService,
	cfg config.Application,
) {
	controller := CartController{service: service}

	// A logged-in shopper's requests must land on the user cart, so the
	// cart routes read the bearer token when one is present.
	r := router.PathPrefix("/carts").Subrouter()
	r.Use(middleware.OptionalAuth(cfg))
	r.HandleFunc("", controller.FindCart).Methods(http.MethodGet)
	r.HandleFunc("/totals", controller.ComputeTotals).Methods(http.MethodGet)
	r.HandleFunc("/items/{productId}", controller.AddItem).Methods(http.MethodPost)
	r.HandleFunc("/items/{productId}/lines/{lineId}/decrement", controller.Decrement).
		Methods(http.MethodPost)
	r.HandleFunc("/items/{productId}/lines/{lineId}", controller.RemoveLine).
		Methods(http.MethodDelete)
	r.Handle("/checkout", middleware.Auth(cfg)(http.HandlerFunc(controller.Checkout))).
		Methods(http.MethodPost)

	router.Handle("/orders", middleware.Auth(cfg)(http.HandlerFunc(controller.FindOrders))).
		Methods(http.MethodGet)
}

// userIdOf returns the authenticated user id, uuid.Nil for anonymous
// requests.
func userIdOf(c context.Context) uuid.UUID {
	userId, err := token.UserIdFromContext(c)
	if err != nil {
		return uuid.Nil
	}
	return userId
}

// statusOf maps the service error taxonomy onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, inErrors.ErrCartNotFound),
		errors.Is(err, inErrors.ErrCartLineNotFound),
		errors.Is(err, inErrors.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, inErrors.ErrProductUnavailable),
		errors.Is(err, inErrors.ErrCartEmpty),
		errors.Is(err, inErrors.ErrOutOfStock):
		return http.StatusConflict
	case errors.Is(err, inErrors.ErrEmptyAuth), errors.Is(err, inErrors.ErrTokenInvalid):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (t CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController AddItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController AddItem").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "validating productId").Logger()
	logger.Info().Msg("validating productId")
	productId, err := uuid.Parse(mux.Vars(r)["productId"])
	if err != nil {
		err = fmt.Errorf("failed validating productId with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}
	logger = logger.With().Str(log.KeyProductID, productId.String()).Logger()
	logger.Info().Msgf("validated productId=%s", productId.String())

	logger = logger.With().Str(log.KeyProcess, "decoding requestbody").Logger()
	logger.Info().Msg("decoding requestbody")
	reqBody := request.AddItem{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil && !errors.Is(err, io.EOF) {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}
	reqBody.CartKey = session.CartKeyFromContext(c)
	reqBody.UserId = userIdOf(c)
	reqBody.ProductId = productId
	logger.Info().Msg("decoded request body")

	logger = logger.With().Str(log.KeyProcess, "validating requestbody").Logger()
	logger.Info().Msg("validating request body")
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Msg("validated request body")

	logger = logger.With().Str(log.KeyProcess, "adding item").Logger()
	logger.Info().Msg("adding item")
	c = logger.WithContext(c)
	if err := t.service.AddItem(c, reqBody); err != nil {
		err = fmt.Errorf("failed adding productId=%s with error=%w", productId.String(), err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": statusOf(err),
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Msg("added item")

	// The storefront flow lands back on the cart page after a mutation.
	http.Redirect(w, r, "/carts", http.StatusSeeOther)
}

func (t CartController) Decrement(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController Decrement")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController Decrement").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "validating path values").Logger()
	logger.Info().Msg("validating path values")
	pathValues := mux.Vars(r)
	productId, err := uuid.Parse(pathValues["productId"])
	if err != nil {
		err = fmt.Errorf("failed validating productId with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}
	lineId, err := uuid.Parse(pathValues["lineId"])
	if err != nil {
		err = fmt.Errorf("failed validating lineId with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}
	logger = logger.With().
		Str(log.KeyProductID, productId.String()).
		Str(log.KeyCartLineID, lineId.String()).
		Logger()
	logger.Info().Msg("validated path values")

	logger = logger.With().Str(log.KeyProcess, "decrementing line").Logger()
	logger.Info().Msg("decrementing line")
	c = logger.WithContext(c)
	err = t.service.Decrement(c, request.Decrement{
		CartKey:   session.CartKeyFromContext(c),
		UserId:    userIdOf(c),
		ProductId: productId,
		LineId:    lineId,
	})
	if err != nil {
		err = fmt.Errorf("failed decrementing lineId=%s with error=%w", lineId.String(), err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": statusOf(err),
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Msg("decremented line")

	http.Redirect(w, r, "/carts", http.StatusSeeOther)
}

func (t CartController) RemoveLine(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController RemoveLine")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController RemoveLine").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "validating path values").Logger()
	logger.Info().Msg("validating path values")
	pathValues := mux.Vars(r)
	productId, err := uuid.Parse(pathValues["productId"])
	if err != nil {
		err = fmt.Errorf("failed validating productId with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}
	lineId, err := uuid.Parse(pathValues["lineId"])
	if err != nil {
		err = fmt.Errorf("failed validating lineId with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}
	logger = logger.With().
		Str(log.KeyProductID, productId.String()).
		Str(log.KeyCartLineID, lineId.String()).
		Logger()
	logger.Info().Msg("validated path values")

	logger = logger.With().Str(log.KeyProcess, "removing line").Logger()
	logger.Info().Msg("removing line")
	c = logger.WithContext(c)
	err = t.service.RemoveLine(c, request.RemoveLine{
		CartKey:   session.CartKeyFromContext(c),
		UserId:    userIdOf(c),
		ProductId: productId,
		LineId:    lineId,
	})
	if err != nil {
		err = fmt.Errorf("failed removing lineId=%s with error=%w", lineId.String(), err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": statusOf(err),
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Msg("removed line")

	http.Redirect(w, r, "/carts", http.StatusSeeOther)
}

func (t CartController) FindCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController FindCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController FindCart").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding cart").Logger()
	logger.Info().Msg("finding cart")
	c = logger.WithContext(c)
	cart, err := t.service.FindCart(c, request.CartRef{
		CartKey: session.CartKeyFromContext(c),
		UserId:  userIdOf(c),
	})
	if err != nil {
		err = fmt.Errorf("failed finding cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": statusOf(err),
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Msg("found cart")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "cart found",
		"data": map[string]interface{}{
			"cart": cart,
		},
	})
}

func (t CartController) ComputeTotals(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController ComputeTotals")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController ComputeTotals").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "computing totals").Logger()
	logger.Info().Msg("computing totals")
	c = logger.WithContext(c)
	totals, err := t.service.ComputeTotals(c, request.CartRef{
		CartKey: session.CartKeyFromContext(c),
		UserId:  userIdOf(c),
	})
	if err != nil {
		err = fmt.Errorf("failed computing totals with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": statusOf(err),
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Msg("computed totals")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "totals computed",
		"data": map[string]interface{}{
			"totals": totals,
		},
	})
}

func (t CartController) FindOrders(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController FindOrders")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController FindOrders").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "getting userId from token").Logger()
	logger.Info().Msg("getting userId from token")
	userId, err := token.UserIdFromContext(c)
	if err != nil {
		err = fmt.Errorf("failed getting userId from token with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusUnauthorized,
			"message":    err.Error(),
		})
		return
	}
	logger = logger.With().Str(log.KeyUserID, userId.String()).Logger()

	logger = logger.With().Str(log.KeyProcess, "finding orders").Logger()
	logger.Info().Msg("finding orders")
	c = logger.WithContext(c)
	orders, err := t.service.FindOrders(c, userId)
	if err != nil {
		err = fmt.Errorf("failed finding orders with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": statusOf(err),
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Msgf("found %d orders", len(orders))

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "orders found",
		"data": map[string]interface{}{
			"orders": orders,
		},
	})
}

func (t CartController) Checkout(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController Checkout")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController Checkout").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "getting userId from token").Logger()
	logger.Info().Msg("getting userId from token")
	userId, err := token.UserIdFromContext(c)
	if err != nil {
		err = fmt.Errorf("failed getting userId from token with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusUnauthorized,
			"message":    err.Error(),
		})
		return
	}
	logger = logger.With().Str(log.KeyUserID, userId.String()).Logger()
	logger.Info().Msgf("got userId=%s", userId.String())

	logger = logger.With().Str(log.KeyProcess, "checking out cart").Logger()
	logger.Info().Msg("checking out cart")
	c = logger.WithContext(c)
	order, err := t.service.Checkout(c, request.Checkout{UserId: userId})
	if err != nil {
		err = fmt.Errorf("failed checking out cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": statusOf(err),
			"message":    err.Error(),
		})
		return
	}
	logger = logger.With().Str(log.KeyOrderID, order.ID.String()).Logger()
	logger.Info().Msg("checked out cart")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    fmt.Sprintf("checkout created orderId=%s", order.ID.String()),
		"data": map[string]interface{}{
			"order": order,
		},
	})
}
