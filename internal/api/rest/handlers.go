package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/auction"
	domainErrors "github.com/auctionhouse/auction-marketplace-backend/internal/domain/errors"
	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/values"
	"github.com/auctionhouse/auction-marketplace-backend/internal/infrastructure/cache"
	"github.com/auctionhouse/auction-marketplace-backend/internal/service/bidding"
	"github.com/auctionhouse/auction-marketplace-backend/internal/service/payment"
)

// AuctionStore is the handler's view of auction persistence beyond what the
// bid ledger exposes.
type AuctionStore interface {
	Create(ctx context.Context, a *auction.Auction) error
	ListByStatus(ctx context.Context, status auction.Status, category string, limit int) ([]*auction.Auction, error)
}

// ItemStore persists auction items
type ItemStore interface {
	Create(ctx context.Context, item *auction.Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*auction.Item, error)
	UpdateApproval(ctx context.Context, id uuid.UUID, approval auction.ApprovalStatus) error
}

// Pinger reports whether the primary datastore is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves the marketplace REST API
type Handler struct {
	bidding   bidding.Service
	payments  *payment.Service
	auctions  AuctionStore
	items     ItemStore
	snapshots *cache.AuctionCache
	db        Pinger
	validate  *validator.Validate
	logger    *zap.Logger
	clock     func() time.Time
}

// NewHandler creates the API handler. db may be nil; the health probe then
// only reports liveness.
func NewHandler(biddingSvc bidding.Service, payments *payment.Service, auctions AuctionStore, items ItemStore, snapshots *cache.AuctionCache, db Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		bidding:   biddingSvc,
		payments:  payments,
		auctions:  auctions,
		items:     items,
		snapshots: snapshots,
		db:        db,
		validate:  validator.New(),
		logger:    logger,
		clock:     time.Now,
	}
}

// Routes registers every endpoint on the mux. Auth and rate limiting are
// layered on in the server, not here.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.handleHealth)

	mux.HandleFunc("GET /api/v1/auctions", h.handleListAuctions)
	mux.HandleFunc("GET /api/v1/auctions/{id}", h.handleGetAuction)
	mux.HandleFunc("GET /api/v1/auctions/{id}/bids", h.handleListBids)
	mux.HandleFunc("POST /api/v1/auctions", h.handleCreateAuction)
	mux.HandleFunc("POST /api/v1/auctions/{id}/bids", h.handlePlaceBid)

	mux.HandleFunc("POST /api/v1/items", h.handleCreateItem)
	mux.HandleFunc("POST /api/v1/items/{id}/approve", h.handleItemApprove)
	mux.HandleFunc("POST /api/v1/items/{id}/reject", h.handleItemReject)

	mux.HandleFunc("POST /api/v1/payments/{id}/complete", h.handlePaymentCompleted)
	mux.HandleFunc("POST /api/v1/payments/{id}/expire", h.handlePaymentExpired)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			h.logger.Warn("health probe: database unreachable", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	auctionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeValidationError(w, "invalid auction ID")
		return
	}

	bidderID, ok := UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: ErrorDetail{
			Code:    "UNAUTHORIZED",
			Message: "Authentication required",
		}})
		return
	}

	var req PlaceBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	amount, err := values.NewMoneyFromString(req.Amount, req.Currency)
	if err != nil {
		writeError(w, h.logger, domainErrors.ErrInvalidAmount.WithDetails(map[string]interface{}{
			"amount": req.Amount,
		}))
		return
	}

	result, err := h.bidding.PlaceBid(r.Context(), auctionID, bidderID, amount)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.snapshots.Invalidate(r.Context(), auctionID)

	writeJSON(w, http.StatusCreated, BidResponse{
		BidID:       result.Bid.ID,
		AuctionID:   auctionID,
		Amount:      result.NewHighest.Amount().StringFixed(2),
		Currency:    result.NewHighest.Currency(),
		Sequence:    result.Sequence,
		SubmittedAt: result.Bid.SubmittedAt,
	})
}

func (h *Handler) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeValidationError(w, "invalid auction ID")
		return
	}

	if a, err := h.snapshots.Get(r.Context(), auctionID); err == nil && a != nil {
		writeJSON(w, http.StatusOK, NewAuctionResponse(a, h.clock()))
		return
	}

	a, err := h.bidding.GetAuction(r.Context(), auctionID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.snapshots.Set(r.Context(), a)
	writeJSON(w, http.StatusOK, NewAuctionResponse(a, h.clock()))
}

func (h *Handler) handleListAuctions(w http.ResponseWriter, r *http.Request) {
	status := auction.StatusActive
	if s := r.URL.Query().Get("status"); s != "" {
		status = auction.ParseStatus(s)
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > 200 {
			writeValidationError(w, "limit must be between 1 and 200")
			return
		}
		limit = parsed
	}

	category := r.URL.Query().Get("category")

	auctions, err := h.auctions.ListByStatus(r.Context(), status, category, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	now := h.clock()
	resp := make([]AuctionResponse, 0, len(auctions))
	for _, a := range auctions {
		resp = append(resp, NewAuctionResponse(a, now))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"auctions": resp})
}

func (h *Handler) handleListBids(w http.ResponseWriter, r *http.Request) {
	auctionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeValidationError(w, "invalid auction ID")
		return
	}

	bids, err := h.bidding.ListBids(r.Context(), auctionID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	entries := make([]BidHistoryEntry, 0, len(bids))
	for _, b := range bids {
		entries = append(entries, BidHistoryEntry{
			BidID:       b.ID,
			BidderID:    b.BidderID,
			Amount:      b.Amount.Amount().StringFixed(2),
			Accepted:    b.Accepted,
			Sequence:    b.Sequence,
			SubmittedAt: b.SubmittedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bids": entries})
}

func (h *Handler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: ErrorDetail{
			Code:    "UNAUTHORIZED",
			Message: "Authentication required",
		}})
		return
	}

	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	starting, err := values.NewMoneyFromString(req.StartingPrice, req.Currency)
	if err != nil || !starting.IsPositive() {
		writeValidationError(w, "starting_price must be a positive amount")
		return
	}
	reserve := values.Zero(req.Currency)
	if req.ReservePrice != "" {
		if reserve, err = values.NewMoneyFromString(req.ReservePrice, req.Currency); err != nil {
			writeValidationError(w, "reserve_price is not a valid amount")
			return
		}
	}

	now := h.clock()
	item := &auction.Item{
		ID:            uuid.New(),
		SellerID:      sellerID,
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		StartingPrice: starting,
		ReservePrice:  reserve,
		Approval:      auction.ApprovalPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.items.Create(r.Context(), item); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleItemApprove(w http.ResponseWriter, r *http.Request) {
	h.handleItemModeration(w, r, auction.ApprovalApproved)
}

func (h *Handler) handleItemReject(w http.ResponseWriter, r *http.Request) {
	h.handleItemModeration(w, r, auction.ApprovalRejected)
}

// handleItemModeration moves an item through the moderation workflow. Only
// tokens carrying the admin role may moderate.
func (h *Handler) handleItemModeration(w http.ResponseWriter, r *http.Request, approval auction.ApprovalStatus) {
	if Role(r.Context()) != RoleAdmin {
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: ErrorDetail{
			Code:    "FORBIDDEN",
			Message: "Moderation requires the admin role",
		}})
		return
	}

	itemID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeValidationError(w, "invalid item ID")
		return
	}

	if err := h.items.UpdateApproval(r.Context(), itemID, approval); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"item_id":  itemID.String(),
		"approval": approval.String(),
	})
}

func (h *Handler) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: ErrorDetail{
			Code:    "UNAUTHORIZED",
			Message: "Authentication required",
		}})
		return
	}

	var req CreateAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	item, err := h.items.GetByID(r.Context(), req.ItemID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if item.SellerID != sellerID {
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: ErrorDetail{
			Code:    "FORBIDDEN",
			Message: "Only the item's seller may open its auction",
		}})
		return
	}

	a, err := auction.NewAuction(item, req.StartTime, req.EndTime)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}
	if err := h.auctions.Create(r.Context(), a); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, NewAuctionResponse(a, h.clock()))
}

func (h *Handler) handlePaymentCompleted(w http.ResponseWriter, r *http.Request) {
	h.handlePaymentCallback(w, r, h.payments.HandleCompleted)
}

func (h *Handler) handlePaymentExpired(w http.ResponseWriter, r *http.Request) {
	h.handlePaymentCallback(w, r, h.payments.HandleExpired)
}

func (h *Handler) handlePaymentCallback(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID) error) {
	auctionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeValidationError(w, "invalid auction ID")
		return
	}

	err = fn(r.Context(), auctionID)
	if err != nil && !domainErrors.IsCode(err, domainErrors.CodeAlreadyFinalized) {
		writeError(w, h.logger, err)
		return
	}
	// A duplicate callback means the outcome is already recorded; report
	// success rather than a conflict the collaborator would retry.
	h.snapshots.Invalidate(r.Context(), auctionID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
