package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/index-compare/internal/model"
	"github.com/yourorg/index-compare/internal/service"
	"github.com/yourorg/index-compare/internal/storage"
	"github.com/yourorg/index-compare/internal/utils"
)

// Comparer builds comparisons
type Comparer interface {
	Compare(ctx context.Context, req model.CompareRequest) (*model.Comparison, error)
	Instruments() []model.Instrument
}

// ChartRenderer draws a comparison as a PNG image
type ChartRenderer interface {
	Render(c *model.Comparison) ([]byte, error)
}

// CompareQuery holds the query parameters of the comparison routes
type CompareQuery struct {
	StartDate string `form:"start_date" binding:"omitempty,tradedate"`
	EndDate   string `form:"end_date" binding:"omitempty,tradedate"`
	Indices   string `form:"indices"`
}

// Request converts the query into a comparison request
func (q CompareQuery) Request() model.CompareRequest {
	return model.CompareRequest{
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Keys:      utils.SplitList(q.Indices),
	}
}

// CompareHandler handles index comparison HTTP requests
type CompareHandler struct {
	compareService Comparer
	chartService   ChartRenderer
	snapshots      storage.Storage
	logger         *zap.Logger
}

// NewCompareHandler creates a new compare handler; snapshots may be nil
func NewCompareHandler(compareService Comparer, chartService ChartRenderer, snapshots storage.Storage, logger *zap.Logger) *CompareHandler {
	return &CompareHandler{
		compareService: compareService,
		chartService:   chartService,
		snapshots:      snapshots,
		logger:         logger,
	}
}

// GetComparison handles GET /api/index-compare
func (h *CompareHandler) GetComparison(c *gin.Context) {
	comparison, ok := h.compare(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, model.NewCompareResponse(comparison))
}

// GetChart handles GET /api/index-compare/chart
func (h *CompareHandler) GetChart(c *gin.Context) {
	png, ok := h.renderChart(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// CreateSnapshot handles POST /api/index-compare/chart/snapshots
func (h *CompareHandler) CreateSnapshot(c *gin.Context) {
	if h.snapshots == nil {
		utils.SendErrorResponse(c, http.StatusServiceUnavailable, "Chart snapshot storage is not configured")
		return
	}
	png, ok := h.renderChart(c)
	if !ok {
		return
	}

	snapshot, err := h.snapshots.Store(c.Request.Context(), png)
	if err != nil {
		h.logger.Error("Failed to store chart snapshot", zap.Error(err))
		utils.SendErrorResponse(c, http.StatusInternalServerError, "Failed to store chart snapshot")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": snapshot})
}

// GetSnapshot handles GET /api/index-compare/chart/snapshots/:id
func (h *CompareHandler) GetSnapshot(c *gin.Context) {
	if h.snapshots == nil {
		utils.SendErrorResponse(c, http.StatusServiceUnavailable, "Chart snapshot storage is not configured")
		return
	}

	body, snapshot, err := h.snapshots.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		utils.SendErrorResponse(c, http.StatusNotFound, "Snapshot not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to read chart snapshot", zap.Error(err), zap.String("id", c.Param("id")))
		utils.SendErrorResponse(c, http.StatusInternalServerError, "Failed to read chart snapshot")
		return
	}
	defer body.Close()

	c.DataFromReader(http.StatusOK, snapshot.Size, "image/png", body, nil)
}

// ListInstruments handles GET /api/indices
func (h *CompareHandler) ListInstruments(c *gin.Context) {
	instruments := h.compareService.Instruments()
	infos := make([]model.InstrumentInfo, len(instruments))
	for i, inst := range instruments {
		infos[i] = inst.Info()
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": infos, "count": len(infos)})
}

func (h *CompareHandler) compare(c *gin.Context) (*model.Comparison, bool) {
	var query CompareQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid query parameters: dates must be YYYYMMDD")
		return nil, false
	}

	comparison, err := h.compareService.Compare(c.Request.Context(), query.Request())
	switch {
	case err == nil:
		return comparison, true
	case errors.Is(err, service.ErrUnknownInstrument), errors.Is(err, service.ErrInvalidRange):
		utils.SendErrorResponse(c, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Comparison failed", zap.Error(err))
		utils.SendErrorResponse(c, http.StatusInternalServerError, err.Error())
	}
	return nil, false
}

func (h *CompareHandler) renderChart(c *gin.Context) ([]byte, bool) {
	comparison, ok := h.compare(c)
	if !ok {
		return nil, false
	}

	png, err := h.chartService.Render(comparison)
	if errors.Is(err, service.ErrNothingToChart) {
		utils.SendErrorResponse(c, http.StatusNotFound, "No data to chart for the requested range")
		return nil, false
	}
	if err != nil {
		h.logger.Error("Failed to render chart", zap.Error(err))
		utils.SendErrorResponse(c, http.StatusInternalServerError, "Failed to render chart")
		return nil, false
	}
	return png, true
}
