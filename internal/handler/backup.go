package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *Handler) registerBackupRoutes(r *gin.RouterGroup) {
	r.GET("/backup", h.ExportBackup)
	r.POST("/backup", h.ImportBackup)
	r.GET("/export/ledger.xlsx", h.ExportLedger)
}

// ExportBackup downloads the whole state as a versioned JSON document
func (h *Handler) ExportBackup(c *gin.Context) {
	data, err := h.svc.Snapshot.ExportJSON()
	if err != nil {
		respondError(c, err)
		return
	}
	filename := fmt.Sprintf("driverops-backup-%s.json", h.svc.Clock.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/json", data)
}

// ImportBackup replaces all state with the uploaded backup; invalid backups leave state untouched
func (h *Handler) ImportBackup(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Snapshot.Import(c.Request.Context(), data); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "backup imported"})
}

// ExportLedger 导出月度账本 Excel
func (h *Handler) ExportLedger(c *gin.Context) {
	year, month, err := h.svc.Clock.ParseMonth(c.Query("month"))
	if err != nil {
		respondError(c, err)
		return
	}
	buf, err := h.svc.Export.LedgerWorkbook(year, month)
	if err != nil {
		respondError(c, err)
		return
	}
	filename := fmt.Sprintf("ledger-%04d-%02d.xlsx", year, int(month))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
