package handler

import (
	"github.com/gin-gonic/gin"

	appcatalog "github.com/locoganga/storefront/internal/application/catalog"
	"github.com/locoganga/storefront/internal/infrastructure/connectivity"
)

// DumpSnapshotRequest overrides the snapshot output path
type DumpSnapshotRequest struct {
	Path string `json:"path"`
}

// SystemHandler serves operational endpoints
type SystemHandler struct {
	BaseHandler
	aggregator   *appcatalog.AggregatorService
	prober       *connectivity.Prober
	snapshotPath string
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(aggregator *appcatalog.AggregatorService, prober *connectivity.Prober, snapshotPath string) *SystemHandler {
	return &SystemHandler{
		aggregator:   aggregator,
		prober:       prober,
		snapshotPath: snapshotPath,
	}
}

// RefreshMirror handles POST /api/v1/system/mirror/refresh
func (h *SystemHandler) RefreshMirror(c *gin.Context) {
	count, err := h.aggregator.RefreshMirror(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"products": count})
}

// DumpSnapshot handles POST /api/v1/system/snapshot/dump
func (h *SystemHandler) DumpSnapshot(c *gin.Context) {
	var req DumpSnapshotRequest
	_ = c.ShouldBindJSON(&req)

	path := req.Path
	if path == "" {
		path = h.snapshotPath
	}
	if path == "" {
		h.BadRequest(c, "No snapshot path configured")
		return
	}

	count, err := h.aggregator.DumpSnapshot(c.Request.Context(), path)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"path": path, "items": count})
}

// Connectivity handles GET /api/v1/system/connectivity
func (h *SystemHandler) Connectivity(c *gin.Context) {
	reports := h.prober.ProbeAll(c.Request.Context())

	healthy := true
	for _, report := range reports {
		if !report.Healthy() {
			healthy = false
			break
		}
	}
	h.Success(c, gin.H{
		"healthy": healthy,
		"targets": reports,
	})
}
