package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/enrollio/referral-backend/internal/middleware"
	"github.com/enrollio/referral-backend/internal/service"
)

// Handler exposes the domain service over HTTP. It validates and types the
// inputs; business rules live in the service.
type Handler struct {
	svc service.Service
}

// NewHandler constructs a Handler, given a Service.
func NewHandler(svc service.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes builds the router. auth wraps the endpoints that require a bearer
// token.
func (h *Handler) Routes(auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.register)
	r.Post("/register/renew", h.renew)
	r.Get("/courses", h.listCourses)

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Get("/create-referral", h.createReferral)
		r.Get("/statistics", h.statistics)
		r.Post("/courses", h.buyCourse)
	})

	return r
}

type registerRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.PhoneNumber == "" || req.Password == "" {
		http.Error(w, "name, phoneNumber and password are required", http.StatusBadRequest)
		return
	}
	addr, err := mail.ParseAddress(req.Email)
	if err != nil {
		http.Error(w, "invalid email", http.StatusBadRequest)
		return
	}

	var referrerID *int64
	if raw := r.URL.Query().Get("referrerId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "referrerId must be an integer", http.StatusBadRequest)
			return
		}
		referrerID = &id
	}

	// Canonical form: the bare parsed address, lowercased. Display-name
	// forms like `Alice <alice@x.org>` collapse to the address itself.
	token, err := h.svc.Register(r.Context(), service.RegisterInput{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Email:       strings.ToLower(addr.Address),
		Password:    req.Password,
		ReferrerID:  referrerID,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailInUse) {
			http.Error(w, service.ErrEmailInUse.Error(), http.StatusForbidden)
			return
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	fmt.Fprint(w, token)
}

type renewRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) renew(w http.ResponseWriter, r *http.Request) {
	var req renewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	token, err := h.svc.SignIn(r.Context(), strings.ToLower(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, service.ErrInvalidCredentials.Error(), http.StatusUnauthorized)
			return
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	fmt.Fprint(w, token)
}

func (h *Handler) createReferral(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.EmailFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	id, found, err := h.svc.IDByEmail(r.Context(), email)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"url": fmt.Sprintf("%s/register?referrerId=%d", r.Host, id),
	})
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.EmailFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	referees, err := h.svc.Referees(r.Context(), email)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, referees)
}

func (h *Handler) listCourses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"courses": h.svc.Courses(),
	})
}

type buyCourseRequest struct {
	CardNumber string `json:"cardNumber"`
	ExpiryDate string `json:"expiryDate"`
	CourseID   *int32 `json:"courseId"`
}

func (h *Handler) buyCourse(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.EmailFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req buyCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.CardNumber == "" || req.ExpiryDate == "" || req.CourseID == nil {
		http.Error(w, "cardNumber, expiryDate and courseId are required", http.StatusBadRequest)
		return
	}

	id, found, err := h.svc.IDByEmail(r.Context(), email)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	outcome, err := h.svc.Purchase(r.Context(), id, *req.CourseID, req.CardNumber, req.ExpiryDate)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	switch outcome {
	case service.PurchaseIncorrectInfo:
		http.Error(w, "incorrect payment information", http.StatusBadRequest)
	case service.PurchaseAlreadyOwned:
		http.Error(w, "you already own this course", http.StatusConflict)
	case service.PurchaseSuccess:
		w.WriteHeader(http.StatusCreated)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
