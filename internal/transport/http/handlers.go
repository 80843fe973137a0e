package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/verdantis/fulfillment/internal/domain"
	"github.com/verdantis/fulfillment/internal/fulfillment"
)

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer func() { _ = r.Body.Close() }()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		s.respondError(w, http.StatusBadRequest, codeBadRequest, "invalid request payload")
		return false
	}
	return true
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request, origin domain.OrderOrigin) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, codeBadRequest, "actor is missing")
		return
	}

	var req createOrderRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	organizationID := req.OrganizationID
	if organizationID == "" {
		organizationID = actor.OrganizationID
	}

	items := make([]fulfillment.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, fulfillment.ItemInput{
			ProductRef:     item.ProductRef,
			Qty:            item.Qty,
			UnitPriceMinor: item.UnitPriceMinor,
		})
	}

	order, err := s.engine.CreateOrder(r.Context(), fulfillment.CreateOrderInput{
		Origin:         origin,
		OrganizationID: organizationID,
		CounterpartyID: req.CounterpartyID,
		CustomerName:   req.CustomerName,
		Description:    req.Description,
		Items:          items,
		TaxMinor:       req.TaxMinor,
		ShippingMinor:  req.ShippingMinor,
		DiscountMinor:  req.DiscountMinor,
	}, actor)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, newOrderView(order))
}

// handleCreatePatientOrder создаёт прямую покупку пациента.
func (s *Server) handleCreatePatientOrder(w http.ResponseWriter, r *http.Request) {
	s.createOrder(w, r, domain.OriginPatientPurchase)
}

// handleCreateMarketplaceOrder создаёт B2B-заказ между организациями.
func (s *Server) handleCreateMarketplaceOrder(w http.ResponseWriter, r *http.Request) {
	s.createOrder(w, r, domain.OriginMarketplace)
}

// handleTransitionStatus переводит заказ в целевой статус.
func (s *Server) handleTransitionStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, codeBadRequest, "actor is missing")
		return
	}

	var req transitionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Status == "" {
		s.respondError(w, http.StatusBadRequest, codeBadRequest, "status is required")
		return
	}

	transition := fulfillment.TransitionRequest{
		OrderID: mux.Vars(r)["id"],
		Target:  domain.OrderStatus(req.Status),
		Actor:   actor,
		Reason:  req.Reason,
	}
	if req.Tracking != nil {
		tracking := req.Tracking.toDomain()
		transition.Tracking = &tracking
	}

	order, err := s.engine.TransitionStatus(r.Context(), transition)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, newOrderView(order))
}

// handleAttachTracking назначает трекинг на стадии подготовки.
func (s *Server) handleAttachTracking(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, codeBadRequest, "actor is missing")
		return
	}

	var req trackingRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	order, err := s.engine.AttachTracking(r.Context(), mux.Vars(r)["id"], req.toDomain(), actor)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, newOrderView(order))
}

// handleGetOrder возвращает заказ с историей статусов.
func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, codeBadRequest, "actor is missing")
		return
	}

	order, err := s.engine.GetOrder(r.Context(), mux.Vars(r)["id"], actor)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, newOrderView(order))
}

// handleListOrders возвращает заказы в скоупе актёра.
func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	s.listOrders(w, r, "")
}

// handleListOrganizationOrders возвращает только marketplace-заказы.
func (s *Server) handleListOrganizationOrders(w http.ResponseWriter, r *http.Request) {
	s.listOrders(w, r, domain.OriginMarketplace)
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request, origin domain.OrderOrigin) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, codeBadRequest, "actor is missing")
		return
	}

	filter, ok := s.filterFromQuery(w, r)
	if !ok {
		return
	}
	// Происхождение фильтруется в хранилище, до применения Limit.
	filter.Origin = origin

	summaries, err := s.engine.ListOrders(r.Context(), filter, actor)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, newSummaryViews(summaries))
}

// handleListExpeditionOrders возвращает очередь экспедиции: оплаченные и
// собираемые заказы в порядке FIFO.
func (s *Server) handleListExpeditionOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, codeBadRequest, "actor is missing")
		return
	}

	organizationID := r.URL.Query().Get("organization_id")
	if organizationID == "" {
		organizationID = actor.OrganizationID
	}

	summaries, err := s.engine.ListExpeditionReady(r.Context(), organizationID, actor)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, newSummaryViews(summaries))
}

func (s *Server) filterFromQuery(w http.ResponseWriter, r *http.Request) (domain.OrderFilter, bool) {
	query := r.URL.Query()
	filter := domain.OrderFilter{
		OrganizationID: query.Get("organization_id"),
		Search:         query.Get("search"),
	}

	if status := query.Get("status"); status != "" {
		parsed := domain.OrderStatus(status)
		if !parsed.Valid() {
			s.respondError(w, http.StatusBadRequest, codeBadRequest, "unknown status filter")
			return domain.OrderFilter{}, false
		}
		filter.Status = parsed
	}

	if raw := query.Get("created_from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, codeBadRequest, "created_from must be RFC3339")
			return domain.OrderFilter{}, false
		}
		filter.CreatedFrom = parsed
	}

	if raw := query.Get("created_to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, codeBadRequest, "created_to must be RFC3339")
			return domain.OrderFilter{}, false
		}
		filter.CreatedTo = parsed
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.respondError(w, http.StatusBadRequest, codeBadRequest, "limit must be a non-negative integer")
			return domain.OrderFilter{}, false
		}
		filter.Limit = limit
	}

	return filter, true
}
