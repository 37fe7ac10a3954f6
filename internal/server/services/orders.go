package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/paramashop/internal/common"
	"github.com/dmitrijs2005/paramashop/internal/dbx"
	"github.com/dmitrijs2005/paramashop/internal/encodex"
	"github.com/dmitrijs2005/paramashop/internal/logging"
	"github.com/dmitrijs2005/paramashop/internal/server/models"
	"github.com/dmitrijs2005/paramashop/internal/server/repositories/repomanager"
)

// PayloadCipher seals and opens order payload bytes (implemented by
// cryptox.Cipher).
type PayloadCipher interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(token []byte) ([]byte, error)
}

// PayloadSigner signs and verifies order payload bytes (implemented by
// signx.Service). An empty signature from SignBase64 means signing is
// unavailable.
type PayloadSigner interface {
	SignBase64(payload []byte) string
	VerifyBase64(payload []byte, sigB64 string) bool
}

// IntegrityStatus is the tri-state outcome of signature verification for
// a retrieved order.
type IntegrityStatus string

const (
	IntegrityNotSigned IntegrityStatus = "NOT_SIGNED"
	IntegrityValid     IntegrityStatus = "VALID"
	IntegrityInvalid   IntegrityStatus = "INVALID"
)

// orderPayload is the canonical plaintext that gets sealed and signed.
// Field order is fixed, so encoding/json produces a reproducible byte
// serialization for signing.
type orderPayload struct {
	Items         []models.OrderItem  `json:"items"`
	Total         float64             `json:"total"`
	Delivery      models.DeliveryInfo `json:"delivery"`
	TransactionID string              `json:"transaction_id"`
}

// PlaceOrderRequest is the input to PlaceOrder.
type PlaceOrderRequest struct {
	Items    []models.OrderItem
	Total    float64
	Delivery models.DeliveryInfo
}

// OrderView is a decrypted order as returned to callers. When the sealed
// payload could not be opened, Items is empty and Total zero; the record
// is degraded, not dropped.
type OrderView struct {
	OrderID       int64               `json:"order_id"`
	TransactionID string              `json:"transaction_id"`
	CreatedAt     time.Time           `json:"created_at"`
	Items         []models.OrderItem  `json:"items"`
	Total         float64             `json:"total"`
	Integrity     IntegrityStatus     `json:"integrity"`
	Delivery      models.DeliveryInfo `json:"delivery"`
}

// Seller token used when an order spans several sellers, or none could be
// resolved.
const (
	sellerTokenMulti   = "MULTI"
	sellerTokenUnknown = "UNKNOWN"
)

// maxTxnAttempts bounds the per-placement retry loop. The 4-digit suffix
// gives 10,000 ids per (seller, day); heavy volume for one seller in one
// day raises collision rates accordingly, and the bound turns exhaustion
// into ErrGenerationExhausted instead of an endless loop.
const maxTxnAttempts = 25

// OrderService is the order protection pipeline: it assembles the
// canonical payload, seals it, signs it, generates a unique transaction
// id, and persists the result; on retrieval it reverses the pipeline and
// reports integrity per record.
type OrderService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cipher      PayloadCipher
	signer      PayloadSigner
	logger      logging.Logger

	now        func() time.Time
	randSuffix func() (int64, error)
}

func NewOrderService(db *sql.DB, m repomanager.RepositoryManager, cipher PayloadCipher, signer PayloadSigner, logger logging.Logger) *OrderService {
	return &OrderService{
		db:          db,
		repomanager: m,
		cipher:      cipher,
		signer:      signer,
		logger:      logger.With("module", "order_service"),
		now:         time.Now,
		randSuffix:  func() (int64, error) { return common.RandIntBelow(10000) },
	}
}

// PlaceOrder validates the items, deducts stock, and persists the sealed
// order. Stock deduction and the insert share one transaction; a
// transaction-id collision retries the insert with a fresh suffix without
// redoing the deductions.
func (s *OrderService) PlaceOrder(ctx context.Context, userID int64, req PlaceOrderRequest) (*OrderView, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: no items provided", common.ErrValidation)
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: invalid quantity in order", common.ErrValidation)
		}
	}

	ids := make([]int64, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.ProductID)
	}
	productList, err := s.repomanager.Products(s.db).GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("error loading products: %w", err)
	}
	productMap := make(map[int64]*models.Product, len(productList))
	for _, p := range productList {
		productMap[p.ID] = p
	}
	for _, item := range req.Items {
		if _, ok := productMap[item.ProductID]; !ok {
			return nil, fmt.Errorf("%w: invalid product in order", common.ErrValidation)
		}
	}

	sellerToken := resolveSellerToken(req.Items, productMap)

	var view *OrderView
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		productsRepo := s.repomanager.Products(tx)
		for _, item := range req.Items {
			ok, err := productsRepo.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: insufficient stock for product %d", common.ErrValidation, item.ProductID)
			}
		}

		order, txnID, err := s.sealAndStore(ctx, tx, userID, req, sellerToken)
		if err != nil {
			return err
		}

		view = &OrderView{
			OrderID:       order.ID,
			TransactionID: txnID,
			CreatedAt:     order.CreatedAt,
			Items:         req.Items,
			Total:         req.Total,
			Integrity:     IntegrityValid,
			Delivery:      req.Delivery,
		}
		if order.Signature == "" {
			view.Integrity = IntegrityNotSigned
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "order placed", "user_id", userID, "order_id", view.OrderID)
	return view, nil
}

// sealAndStore runs the generate-seal-sign-insert loop until the encoded
// transaction id is unique or the attempt budget runs out.
func (s *OrderService) sealAndStore(ctx context.Context, tx dbx.DBTX, userID int64, req PlaceOrderRequest, sellerToken string) (*models.Order, string, error) {
	ordersRepo := s.repomanager.Orders(tx)
	dateStr := s.now().UTC().Format("20060102")

	for attempt := 0; attempt < maxTxnAttempts; attempt++ {
		suffix, err := s.randSuffix()
		if err != nil {
			return nil, "", common.ErrorInternal
		}
		txnID := fmt.Sprintf("TXN-%s-%s-%04d", sellerToken, dateStr, suffix)

		payload := orderPayload{
			Items:         req.Items,
			Total:         req.Total,
			Delivery:      req.Delivery,
			TransactionID: txnID,
		}
		plaintext, err := json.Marshal(payload)
		if err != nil {
			return nil, "", common.ErrorInternal
		}

		sealed, err := s.cipher.Seal(plaintext)
		if err != nil {
			return nil, "", common.ErrorInternal
		}
		signature := s.signer.SignBase64(plaintext)
		if signature == "" {
			s.logger.Warn(ctx, "order signing unavailable, storing unsigned order", "user_id", userID)
		}

		order := &models.Order{
			UserID:        userID,
			SealedData:    sealed,
			Signature:     signature,
			TransactionID: encodex.Base64Encode(txnID),
			Delivery:      req.Delivery,
		}
		order, err = ordersRepo.Create(ctx, order)
		if err != nil {
			if errors.Is(err, common.ErrAlreadyExists) {
				continue
			}
			return nil, "", err
		}
		return order, txnID, nil
	}

	return nil, "", common.ErrGenerationExhausted
}

// resolveSellerToken picks the seller component of the transaction id:
// the single seller's id, MULTI across sellers, UNKNOWN when none
// resolved.
func resolveSellerToken(items []models.OrderItem, productMap map[int64]*models.Product) string {
	sellerIDs := make(map[int64]struct{})
	for _, item := range items {
		if p, ok := productMap[item.ProductID]; ok {
			sellerIDs[p.SellerID] = struct{}{}
		}
	}
	switch len(sellerIDs) {
	case 0:
		return sellerTokenUnknown
	case 1:
		for id := range sellerIDs {
			return fmt.Sprintf("%d", id)
		}
	}
	return sellerTokenMulti
}

// ListUserOrders returns the user's orders, newest first. A record whose
// payload fails to open is returned degraded (no items, zero total)
// rather than failing the whole listing.
func (s *OrderService) ListUserOrders(ctx context.Context, userID int64) ([]*OrderView, error) {
	records, err := s.repomanager.Orders(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading orders: %w", err)
	}

	views := make([]*OrderView, 0, len(records))
	for _, rec := range records {
		views = append(views, s.openOrder(ctx, rec))
	}
	return views, nil
}

// SellerOrderView is an order as seen by one seller: only that seller's
// line items and the revenue attributable to them.
type SellerOrderView struct {
	OrderID        int64               `json:"order_id"`
	TransactionID  string              `json:"transaction_id"`
	UserID         int64               `json:"user_id"`
	CreatedAt      time.Time           `json:"created_at"`
	Items          []models.OrderItem  `json:"items"`
	TotalForSeller float64             `json:"total_for_seller"`
	Integrity      IntegrityStatus     `json:"integrity"`
	Delivery       models.DeliveryInfo `json:"delivery"`
}

// ListSellerOrders scans all orders and returns those containing at least
// one of the seller's products. Filtering happens here because line items
// only exist inside the sealed payload; undecryptable records cannot be
// attributed and are skipped.
func (s *OrderService) ListSellerOrders(ctx context.Context, sellerID int64) ([]*SellerOrderView, error) {
	productList, err := s.repomanager.Products(s.db).ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("error loading products: %w", err)
	}
	owned := make(map[int64]struct{}, len(productList))
	for _, p := range productList {
		owned[p.ID] = struct{}{}
	}

	records, err := s.repomanager.Orders(s.db).ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading orders: %w", err)
	}

	var views []*SellerOrderView
	for _, rec := range records {
		plaintext, err := s.cipher.Open(rec.SealedData)
		if err != nil {
			s.logger.Warn(ctx, "order payload failed to open", "order_id", rec.ID)
			continue
		}
		var payload orderPayload
		if err := json.Unmarshal(plaintext, &payload); err != nil {
			continue
		}

		var filtered []models.OrderItem
		var total float64
		for _, item := range payload.Items {
			if _, ok := owned[item.ProductID]; ok {
				filtered = append(filtered, item)
				total += item.Price * float64(item.Quantity)
			}
		}
		if len(filtered) == 0 {
			continue
		}

		views = append(views, &SellerOrderView{
			OrderID:        rec.ID,
			TransactionID:  s.decodeTransactionID(rec.TransactionID),
			UserID:         rec.UserID,
			CreatedAt:      rec.CreatedAt,
			Items:          filtered,
			TotalForSeller: total,
			Integrity:      s.verifyIntegrity(plaintext, rec.Signature),
			Delivery:       rec.Delivery,
		})
	}
	return views, nil
}

// openOrder reverses the pipeline for one record: decrypt, verify the
// signature against the exact recovered bytes, decode the transaction id.
func (s *OrderService) openOrder(ctx context.Context, rec *models.Order) *OrderView {
	view := &OrderView{
		OrderID:       rec.ID,
		TransactionID: s.decodeTransactionID(rec.TransactionID),
		CreatedAt:     rec.CreatedAt,
		Delivery:      rec.Delivery,
		Integrity:     IntegrityNotSigned,
	}

	plaintext, err := s.cipher.Open(rec.SealedData)
	if err != nil {
		s.logger.Warn(ctx, "order payload failed to open", "order_id", rec.ID)
		if rec.Signature != "" {
			// The signature exists but there is nothing verifiable left.
			view.Integrity = IntegrityInvalid
		}
		return view
	}

	var payload orderPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		s.logger.Warn(ctx, "order payload failed to decode", "order_id", rec.ID)
		if rec.Signature != "" {
			view.Integrity = IntegrityInvalid
		}
		return view
	}

	view.Items = payload.Items
	view.Total = payload.Total
	view.Integrity = s.verifyIntegrity(plaintext, rec.Signature)
	return view
}

func (s *OrderService) verifyIntegrity(plaintext []byte, signature string) IntegrityStatus {
	if signature == "" {
		return IntegrityNotSigned
	}
	if s.signer.VerifyBase64(plaintext, signature) {
		return IntegrityValid
	}
	return IntegrityInvalid
}

func (s *OrderService) decodeTransactionID(encoded string) string {
	if encoded == "" {
		return ""
	}
	decoded, err := encodex.Base64Decode(encoded)
	if err != nil {
		return ""
	}
	return decoded
}
