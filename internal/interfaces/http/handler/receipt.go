package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	app "github.com/housika/receipts/internal/application/receipt"
	domain "github.com/housika/receipts/internal/domain/receipt"
	"github.com/housika/receipts/internal/infrastructure/delivery"
	"github.com/housika/receipts/internal/interfaces/http/dto"
	"github.com/housika/receipts/internal/interfaces/http/router"
)

// ReceiptService is the subset of the receipt application service the API uses.
type ReceiptService interface {
	Generate(ctx context.Context, booking domain.BookingRecord) (*app.GenerateResult, error)
	Deliver(ctx context.Context, url, fileName string) (*app.SaveResult, error)
	Download(ctx context.Context, url string, sink delivery.Sink) error
	Release(ctx context.Context, url string) error
}

// ReceiptHandler handles receipt generation and delivery.
type ReceiptHandler struct {
	BaseHandler
	service ReceiptService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(service ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{service: service}
}

// Routes returns the receipt route group.
func (h *ReceiptHandler) Routes() router.Group {
	return router.Group{
		Name:   "receipts",
		Prefix: "/receipts",
		Routes: []router.Route{
			router.POST("", h.Generate),
			router.GET("/:handle", h.Download),
			router.POST("/:handle/save", h.Save),
			router.DELETE("/:handle", h.Release),
		},
	}
}

// Generate godoc
// @ID           generateReceipt
// @Summary      Generate a receipt
// @Description  Renders a receipt PDF for a completed booking and returns a transient handle.
// @Description  With save=true the receipt is also written to the configured sink and the handle is consumed.
// @Tags         receipts
// @Accept       json
// @Produce      json
// @Param        save query bool false "Save to the default sink"
// @Param        request body domain.BookingRecord true "Booking record"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /receipts [post]
func (h *ReceiptHandler) Generate(c *gin.Context) {
	var booking domain.BookingRecord
	if err := c.ShouldBindJSON(&booking); err != nil {
		h.BindError(c, "booking payload", err)
		return
	}

	save, _ := strconv.ParseBool(c.Query("save"))

	result, err := h.service.Generate(c.Request.Context(), booking)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := dto.GenerateReceiptResponse{Document: result.Document, Report: result.Report}
	if save {
		_, err := h.service.Deliver(c.Request.Context(), result.Document.URL, "")
		saved := err == nil
		resp.Saved = &saved
	}
	h.Respond(c, http.StatusCreated, resp)
}

// Download godoc
// @ID           downloadReceipt
// @Summary      Download a receipt
// @Description  Streams the PDF behind the handle and releases the handle.
// @Tags         receipts
// @Produce      application/pdf
// @Param        handle path string true "Handle id"
// @Success      200 {file} binary
// @Failure      404 {object} dto.Response
// @Failure      410 {object} dto.Response
// @Router       /receipts/{handle} [get]
func (h *ReceiptHandler) Download(c *gin.Context) {
	url := delivery.URLPrefix + c.Param("handle")
	if err := h.service.Download(c.Request.Context(), url, delivery.ResponseSink{W: c.Writer}); err != nil {
		if c.Writer.Written() {
			_ = c.Error(err)
			return
		}
		h.HandleError(c, err)
	}
}

// Save godoc
// @ID           saveReceipt
// @Summary      Save a receipt to the default sink
// @Tags         receipts
// @Accept       json
// @Produce      json
// @Param        handle path string true "Handle id"
// @Param        request body dto.SaveReceiptRequest false "Optional file name"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      502 {object} dto.Response
// @Router       /receipts/{handle}/save [post]
func (h *ReceiptHandler) Save(c *gin.Context) {
	var req dto.SaveReceiptRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, "save request", err)
			return
		}
	}

	if req.FileName != "" {
		if err := domain.ValidateFileName(req.FileName); err != nil {
			h.HandleError(c, err)
			return
		}
	}

	saved, err := h.service.Deliver(c.Request.Context(), delivery.URLPrefix+c.Param("handle"), req.FileName)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Respond(c, http.StatusOK, dto.SaveReceiptResponse{
		Saved:    true,
		FileName: saved.FileName,
		Location: saved.Location,
	})
}

// Release godoc
// @ID           releaseReceipt
// @Summary      Release a receipt handle without downloading it
// @Tags         receipts
// @Param        handle path string true "Handle id"
// @Success      204
// @Failure      404 {object} dto.Response
// @Failure      410 {object} dto.Response
// @Router       /receipts/{handle} [delete]
func (h *ReceiptHandler) Release(c *gin.Context) {
	if err := h.service.Release(c.Request.Context(), delivery.URLPrefix+c.Param("handle")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
