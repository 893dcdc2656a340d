package handler

import (
	"io"

	"github.com/fieldbook-id/fieldbook/internal/domain"
	"github.com/fieldbook-id/fieldbook/internal/service"
	"github.com/gofiber/fiber/v2"
)

// FieldHandler handles field and schedule management endpoints
type FieldHandler struct {
	fields          *service.FieldService
	maxUploadSizeMB int64
}

// NewFieldHandler creates a new field handler
func NewFieldHandler(fields *service.FieldService, maxUploadSizeMB int64) *FieldHandler {
	return &FieldHandler{fields: fields, maxUploadSizeMB: maxUploadSizeMB}
}

// ListFields handles GET /v1/fields
func (h *FieldHandler) ListFields(c *fiber.Ctx) error {
	fields, err := h.fields.ListFields(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fields)
}

// GetField handles GET /v1/fields/:id
func (h *FieldHandler) GetField(c *fiber.Ctx) error {
	field, err := h.fields.GetField(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(field)
}

// Availability handles GET /v1/fields/:id/availability?from=2025-06-01&to=2025-06-30
func (h *FieldHandler) Availability(c *fiber.Ctx) error {
	from, err := parseDate(c.Query("from"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid 'from' date, expected YYYY-MM-DD"})
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid 'to' date, expected YYYY-MM-DD"})
	}

	availability, err := h.fields.Availability(c.Context(), c.Params("id"), from, to)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"fieldId":      c.Params("id"),
		"from":         from.Format("2006-01-02"),
		"to":           to.Format("2006-01-02"),
		"availability": availability,
	})
}

// CreateField handles POST /v1/admin/fields
func (h *FieldHandler) CreateField(c *fiber.Ctx) error {
	var req struct {
		Name      string            `json:"name"`
		Location  string            `json:"location"`
		SlotRates []domain.SlotRate `json:"slotRates"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Field name is required"})
	}

	field := &domain.Field{
		Name:      req.Name,
		Location:  req.Location,
		SlotRates: req.SlotRates,
	}
	if err := h.fields.CreateField(c.Context(), field); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(field)
}

// SetSlotRates handles PUT /v1/admin/fields/:id/rates
func (h *FieldHandler) SetSlotRates(c *fiber.Ctx) error {
	var req struct {
		SlotRates []domain.SlotRate `json:"slotRates"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	fieldID := c.Params("id")
	if err := h.fields.SetSlotRates(c.Context(), fieldID, req.SlotRates); err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"fieldId": fieldID, "slotRates": req.SlotRates})
}

// UploadPhoto handles POST /v1/admin/fields/:id/photo (multipart)
func (h *FieldHandler) UploadPhoto(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing 'photo' file"})
	}
	if fileHeader.Size > h.maxUploadSizeMB*1024*1024 {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "File too large"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to open uploaded file"})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read uploaded file"})
	}

	contentType := fileHeader.Header.Get("Content-Type")
	url, err := h.fields.UploadPhoto(c.Context(), c.Params("id"), data, fileHeader.Filename, contentType)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"photoUrl": url})
}

// BulkCreateSchedules handles POST /v1/admin/fields/:id/schedules
func (h *FieldHandler) BulkCreateSchedules(c *fiber.Ctx) error {
	var req struct {
		StartDate string            `json:"startDate"`
		EndDate   string            `json:"endDate"`
		Slots     []domain.SlotRate `json:"slots"`
		Weekdays  []string          `json:"weekdays"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date format, expected YYYY-MM-DD"})
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date format, expected YYYY-MM-DD"})
	}
	if len(req.Slots) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "At least one slot is required"})
	}

	records, err := h.fields.BulkCreateSchedules(c.Context(), c.Params("id"), service.BulkScheduleRequest{
		StartDate: start,
		EndDate:   end,
		Slots:     req.Slots,
		Weekdays:  req.Weekdays,
	})
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"created": len(records),
		"records": records,
	})
}
