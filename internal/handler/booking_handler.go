package handler

import (
	"time"

	"github.com/fieldbook-id/fieldbook/internal/domain"
	"github.com/fieldbook-id/fieldbook/internal/middleware"
	"github.com/fieldbook-id/fieldbook/internal/service"
	"github.com/gofiber/fiber/v2"
)

// BookingHandler handles recurring-package booking endpoints
type BookingHandler struct {
	packages *service.PackageService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(packages *service.PackageService) *BookingHandler {
	return &BookingHandler{packages: packages}
}

// packageRequest is the wire form of a recurring booking pattern. Dates are
// "2006-01-02" strings.
type packageRequest struct {
	FieldID      string            `json:"fieldId"`
	PackageName  string            `json:"packageName"`
	StartDate    string            `json:"startDate"`
	EndDate      string            `json:"endDate"`
	Weekdays     []string          `json:"weekdays"`
	WeekdaySlots map[string]string `json:"weekdaySlots"`
}

func (r packageRequest) toQuoteRequest() (service.QuoteRequest, error) {
	start, err := parseDate(r.StartDate)
	if err != nil {
		return service.QuoteRequest{}, err
	}
	end, err := parseDate(r.EndDate)
	if err != nil {
		return service.QuoteRequest{}, err
	}
	return service.QuoteRequest{
		FieldID:      r.FieldID,
		PackageName:  r.PackageName,
		StartDate:    start,
		EndDate:      end,
		Weekdays:     r.Weekdays,
		WeekdaySlots: r.WeekdaySlots,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// errorStatus maps domain error classes to HTTP statuses
func errorStatus(err error) int {
	switch {
	case domain.IsValidation(err):
		return fiber.StatusBadRequest
	case domain.IsConflict(err):
		return fiber.StatusConflict
	case domain.IsNotFound(err):
		return fiber.StatusNotFound
	case err == domain.ErrForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// Quote handles POST /v1/bookings/quote
func (h *BookingHandler) Quote(c *fiber.Ctx) error {
	var req packageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	quoteReq, err := req.toQuoteRequest()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date format, expected YYYY-MM-DD"})
	}

	quote, err := h.packages.Quote(c.Context(), quoteReq)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(quote)
}

// CreatePackage handles POST /v1/bookings
func (h *BookingHandler) CreatePackage(c *fiber.Ctx) error {
	var req packageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	quoteReq, err := req.toQuoteRequest()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date format, expected YYYY-MM-DD"})
	}

	detail, err := h.packages.CreatePackage(c.Context(), middleware.UserID(c), quoteReq)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(detail)
}

// ListPackages handles GET /v1/bookings
func (h *BookingHandler) ListPackages(c *fiber.Ctx) error {
	packages, err := h.packages.ListPackages(c.Context(), middleware.UserID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(packages)
}

// GetPackage handles GET /v1/bookings/:id
func (h *BookingHandler) GetPackage(c *fiber.Ctx) error {
	customerID := middleware.UserID(c)
	if middleware.HasRole(c, domain.RoleAdmin) {
		customerID = "" // admins see every package
	}

	detail, err := h.packages.GetPackage(c.Context(), c.Params("id"), customerID)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(detail)
}

// ConfirmPackage handles POST /v1/bookings/:id/confirm
func (h *BookingHandler) ConfirmPackage(c *fiber.Ctx) error {
	result, err := h.packages.ConfirmPackage(c.Context(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	// Partial reconciliation failure is still a confirmed package; the
	// failures are reported, not rolled back.
	if len(result.Failures) > 0 {
		return c.Status(fiber.StatusMultiStatus).JSON(result)
	}
	return c.JSON(result)
}

// CompletePackage handles POST /v1/bookings/:id/complete
func (h *BookingHandler) CompletePackage(c *fiber.Ctx) error {
	pkg, err := h.packages.CompletePackage(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(pkg)
}

// CancelPackage handles POST /v1/bookings/:id/cancel
func (h *BookingHandler) CancelPackage(c *fiber.Ctx) error {
	customerID := middleware.UserID(c)
	if middleware.HasRole(c, domain.RoleAdmin) {
		customerID = ""
	}

	result, err := h.packages.CancelPackage(c.Context(), c.Params("id"), customerID)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(result)
}

// CancelSession handles POST /v1/bookings/sessions/:id/cancel
func (h *BookingHandler) CancelSession(c *fiber.Ctx) error {
	customerID := middleware.UserID(c)
	if middleware.HasRole(c, domain.RoleAdmin) {
		customerID = ""
	}

	result, err := h.packages.CancelSession(c.Context(), c.Params("id"), customerID)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(result)
}
