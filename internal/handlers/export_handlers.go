package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mtanaka-dev/stocksync/internal/middleware"
	"github.com/mtanaka-dev/stocksync/internal/services"
)

// ExportHandler serves token-gated CSV downloads of stored stock data.
type ExportHandler struct {
	exportSvc *services.ExportService
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exportSvc *services.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// Download streams stored rows as a CSV attachment. Filters come from form
// fields: tickers (whitespace/comma separated), start_date, end_date.
func (h *ExportHandler) Download(c *gin.Context) {
	token, ok := middleware.GetToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access token required"})
		return
	}

	req := services.ExportRequest{
		Codes: SplitTickers(c.PostForm("tickers")),
	}

	var err error
	if req.Start, err = parseDate(c.PostForm("start_date")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date, expected YYYY-MM-DD"})
		return
	}
	if req.End, err = parseDate(c.PostForm("end_date")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date, expected YYYY-MM-DD"})
		return
	}

	query, err := h.exportSvc.ResolveQuery(c.Request.Context(), token.PlanType, req)
	if err != nil {
		var rangeErr *services.RangeError
		if errors.As(err, &rangeErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": rangeErr.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve export"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename=stock_data.csv`)
	c.Status(http.StatusOK)

	h.exportSvc.StreamCSV(c.Request.Context(), c.Writer, query)
}

// SplitTickers splits a user-supplied ticker list on whitespace, commas,
// and newlines, dropping empties.
func SplitTickers(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	var codes []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			codes = append(codes, f)
		}
	}
	return codes
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
