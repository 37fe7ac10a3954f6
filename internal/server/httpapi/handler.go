// Package httpapi exposes the server's functionality over HTTP/JSON.
// Authorization is explicit: each privileged handler resolves and checks
// the caller before touching business logic.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/paramashop/internal/common"
	"github.com/dmitrijs2005/paramashop/internal/logging"
	"github.com/dmitrijs2005/paramashop/internal/server/models"
	"github.com/dmitrijs2005/paramashop/internal/server/services"
)

// PublicKeyExporter supplies the PEM text of the order-signing public key
// (implemented by signx.Service).
type PublicKeyExporter interface {
	ExportPublicKey() string
}

type Handler struct {
	users  *services.UserService
	otp    *services.OTPService
	authz  *services.AuthzService
	orders *services.OrderService
	keys   PublicKeyExporter
	logger logging.Logger
}

func NewHandler(users *services.UserService, otp *services.OTPService, authz *services.AuthzService, orders *services.OrderService, keys PublicKeyExporter, logger logging.Logger) *Handler {
	return &Handler{
		users:  users,
		otp:    otp,
		authz:  authz,
		orders: orders,
		keys:   keys,
		logger: logger.With("module", "httpapi"),
	}
}

// Router wires all routes. Privileged endpoints carry their required role
// in the handler body, not in middleware, so the check is visible at the
// point of use.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/api/security/public-key", h.publicKey).Methods(http.MethodGet)

	r.HandleFunc("/api/auth/register", h.register).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/register-seller", h.registerSeller).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/verify-otp", h.verifyOTP).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/forgot-password", h.forgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/reset-password", h.resetPassword).Methods(http.MethodPost)

	r.HandleFunc("/api/orders", h.placeOrder).Methods(http.MethodPost)
	r.HandleFunc("/api/orders", h.listOrders).Methods(http.MethodGet)
	r.HandleFunc("/api/seller/orders", h.listSellerOrders).Methods(http.MethodGet)

	r.HandleFunc("/api/admin/sellers/{id:[0-9]+}/approve", h.approveSeller).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/sellers/{id:[0-9]+}/reject", h.rejectSeller).Methods(http.MethodPost)

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) publicKey(w http.ResponseWriter, r *http.Request) {
	pemText := h.keys.ExportPublicKey()
	if pemText == "" {
		writeError(w, http.StatusServiceUnavailable, "signing key not available")
		return
	}
	w.Header().Set("Content-Type", "application/x-pem-file")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(pemText))
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type otpIssuedResponse struct {
	UserID    int64  `json:"user_id"`
	ExpiresAt string `json:"expires_at"`
	Delivered bool   `json:"delivered"`
}

func issuedResponse(receipt *services.IssueReceipt) otpIssuedResponse {
	return otpIssuedResponse{
		UserID:    receipt.UserID,
		ExpiresAt: receipt.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
		Delivered: receipt.Delivered,
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	_, receipt, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, issuedResponse(receipt))
}

type registerSellerRequest struct {
	registerRequest
	ShopName string `json:"shop_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Category string `json:"category"`
}

func (h *Handler) registerSeller(w http.ResponseWriter, r *http.Request) {
	var req registerSellerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile := &models.SellerProfile{
		ShopName: req.ShopName,
		Phone:    req.Phone,
		Address:  req.Address,
		Category: req.Category,
	}
	_, receipt, err := h.users.RegisterSeller(r.Context(), req.Name, req.Email, req.Password, profile)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, issuedResponse(receipt))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issuedResponse(receipt))
}

type verifyOTPRequest struct {
	UserID int64  `json:"user_id"`
	Code   string `json:"code"`
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.otp.Verify(r.Context(), req.UserID, req.Code)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := h.users.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issuedResponse(receipt))
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.users.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

type placeOrderRequest struct {
	Items    []models.OrderItem  `json:"items"`
	Total    float64             `json:"total"`
	Delivery models.DeliveryInfo `json:"delivery"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authz.Authorize(r.Context(), bearerToken(r), models.RoleUser)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.orders.PlaceOrder(r.Context(), userID, services.PlaceOrderRequest{
		Items:    req.Items,
		Total:    req.Total,
		Delivery: req.Delivery,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authz.Authorize(r.Context(), bearerToken(r), models.RoleUser)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	views, err := h.orders.ListUserOrders(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) listSellerOrders(w http.ResponseWriter, r *http.Request) {
	sellerID, err := h.authz.Authorize(r.Context(), bearerToken(r), models.RoleSeller)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	views, err := h.orders.ListSellerOrders(r.Context(), sellerID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) approveSeller(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authz.Authorize(r.Context(), bearerToken(r), models.RoleAdmin); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid seller id")
		return
	}
	if err := h.users.ApproveSeller(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.SellerApproved)})
}

func (h *Handler) rejectSeller(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authz.Authorize(r.Context(), bearerToken(r), models.RoleAdmin); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid seller id")
		return
	}
	if err := h.users.RejectSeller(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.SellerRejected)})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// bearerToken extracts the credential from the Authorization header.
// Missing or malformed headers yield "", which fails token validation
// downstream.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}

// writeServiceError maps sentinel errors to HTTP statuses. Anything not
// explicitly mapped is an internal fault and reported without detail.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrInvalidCode), errors.Is(err, common.ErrCodeExpired),
		errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, common.ErrAccessDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
