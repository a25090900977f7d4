package httpinterface

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/solstream/swapd/internal/core/domain"
	"github.com/solstream/swapd/internal/core/ports"
)

type executeOrderRequest struct {
	OrderType   string          `json:"orderType"`
	TokenIn     string          `json:"tokenIn"`
	TokenOut    string          `json:"tokenOut"`
	Amount      decimal.Decimal `json:"amount"`
	SlippageBps *int64          `json:"slippageBps,omitempty"`
}

func (s *Service) executeOrderHandler(w http.ResponseWriter, req *http.Request) {
	var body executeOrderRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if body.OrderType != domain.OrderTypeMarket {
		writeError(
			w, http.StatusBadRequest, "invalid_body",
			fmt.Sprintf("unsupported order type %q", body.OrderType),
		)
		return
	}

	admission := s.admission.TryAdmit()
	if !admission.Allowed {
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":        "rate_limited",
			"message":      fmt.Sprintf("API limit %d/min exceeded", admission.Limit),
			"currentCount": admission.Count,
		})
		return
	}

	slippageBps := s.defaultSlippageBps
	if body.SlippageBps != nil {
		slippageBps = *body.SlippageBps
	}

	order, err := domain.NewOrder(body.TokenIn, body.TokenOut, body.Amount, slippageBps)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	if key := req.Header.Get("Idempotency-Key"); key != "" {
		canonicalId, err := s.idempotency.Reserve(
			req.Context(), key, order.Id, s.idempotencyTTL,
		)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if canonicalId != order.Id {
			// Replayed request, the original order is the canonical answer.
			writeJSON(w, http.StatusOK, map[string]interface{}{"orderId": canonicalId})
			return
		}
	}

	if err := s.repoManager.OrderRepository().AddOrder(req.Context(), order); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if err := s.pubsub.Publish(
		req.Context(), order.Id, "pending",
		map[string]interface{}{"source": "api"},
	); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if err := s.queue.Enqueue(ports.Job{
		OrderId:     order.Id,
		TokenIn:     order.TokenIn,
		TokenOut:    order.TokenOut,
		Amount:      order.Amount,
		SlippageBps: order.SlippageBps,
	}); err != nil {
		writeError(w, http.StatusServiceUnavailable, "queue_unavailable", err.Error())
		return
	}

	log.Debugf("accepted order %s for pair %s", order.Id, order.Pair())
	writeJSON(w, http.StatusOK, map[string]interface{}{"orderId": order.Id})
}

func (s *Service) getOrderHandler(w http.ResponseWriter, req *http.Request) {
	orderId := mux.Vars(req)["id"]

	order, err := s.repoManager.OrderRepository().GetOrder(req.Context(), orderId)
	if err != nil {
		if err == domain.ErrOrderNotFound {
			writeError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	events, err := s.repoManager.OrderRepository().ListEvents(req.Context(), orderId)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	eventViews := make([]map[string]interface{}, 0, len(events))
	for _, event := range events {
		eventViews = append(eventViews, eventToView(event))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"order":  orderToView(order),
		"events": eventViews,
	})
}

func orderToView(o *domain.Order) map[string]interface{} {
	view := map[string]interface{}{
		"id":          o.Id,
		"type":        o.Type,
		"tokenIn":     o.TokenIn,
		"tokenOut":    o.TokenOut,
		"amount":      o.Amount.String(),
		"slippageBps": o.SlippageBps,
		"status":      o.Status.String(),
		"createdAt":   o.CreatedAt,
		"updatedAt":   o.UpdatedAt,
	}
	if o.RouteVenue != "" {
		view["routeVenue"] = o.RouteVenue
		view["expectedPrice"] = o.ExpectedPrice.String()
		view["routeFee"] = o.RouteFee.String()
	}
	if o.TxRef != "" {
		view["txHash"] = o.TxRef
	}
	if o.Status.Code == domain.OrderStatusCodeConfirmed {
		view["executedPrice"] = o.ExecutedPrice.String()
		view["amountOut"] = o.AmountOut.String()
	}
	if o.FailureReason != "" {
		view["failureReason"] = o.FailureReason
		view["lastStep"] = o.LastStep
	}
	return view
}

func eventToView(e *domain.OrderEvent) map[string]interface{} {
	return map[string]interface{}{
		"orderId": e.OrderId,
		"status":  e.Status,
		"payload": e.Payload,
		"ts":      e.CreatedAt.UnixMilli(),
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	//nolint
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, statusCode int, errCode, message string) {
	writeJSON(w, statusCode, map[string]interface{}{
		"error":   errCode,
		"message": message,
	})
}
