package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"claimflow/internal/domain"
	"claimflow/internal/export"
	"claimflow/internal/service"
)

// ClaimHandler handles claim submission and run retrieval endpoints.
type ClaimHandler struct {
	claimService *service.ClaimService
	maxUploadMB  int64
}

// NewClaimHandler creates a new ClaimHandler.
func NewClaimHandler(claimService *service.ClaimService, maxUploadMB int64) *ClaimHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 25
	}
	return &ClaimHandler{claimService: claimService, maxUploadMB: maxUploadMB}
}

// Process handles POST /api/v1/claims/process. It accepts a multipart batch
// under the "files" field and returns the full claim report.
func (h *ClaimHandler) Process(c *gin.Context) {
	maxBytes := h.maxUploadMB << 20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_MULTIPART", "request must be multipart/form-data with a files field")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		RespondError(c, http.StatusBadRequest, "EMPTY_BATCH", "at least one document is required")
		return
	}

	inputs := make([]domain.DocumentInput, 0, len(files))
	for _, header := range files {
		contentType := documentContentType(header.Header.Get("Content-Type"), header.Filename)
		if !domain.AllowedContentTypes[contentType] {
			RespondError(c, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE",
				fmt.Sprintf("%s: unsupported file type; allowed: pdf, txt", header.Filename))
			return
		}

		file, err := header.Open()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "UNREADABLE_FILE", fmt.Sprintf("%s: could not read upload", header.Filename))
			return
		}
		content, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "UNREADABLE_FILE", fmt.Sprintf("%s: could not read upload", header.Filename))
			return
		}

		inputs = append(inputs, domain.DocumentInput{
			Filename:    header.Filename,
			Content:     content,
			ContentType: contentType,
		})
	}

	report, run, err := h.claimService.ProcessClaim(c.Request.Context(), inputs)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"run_id": run.ID,
		"report": report,
	})
}

// List handles GET /api/v1/claims
func (h *ClaimHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, total, err := h.claimService.ListRuns(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, runs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/claims/:id
func (h *ClaimHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "run id must be a UUID")
		return
	}

	run, err := h.claimService.GetRun(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, run)
}

// Export handles GET /api/v1/claims/:id/export and streams the run's report
// as an Excel workbook.
func (h *ClaimHandler) Export(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "run id must be a UUID")
		return
	}

	run, err := h.claimService.GetRun(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	if len(run.Report) == 0 {
		RespondError(c, http.StatusConflict, "NO_REPORT", "run has no report to export")
		return
	}

	var report domain.ClaimReport
	if err := json.Unmarshal(run.Report, &report); err != nil {
		HandleError(c, fmt.Errorf("unmarshal stored report: %w", err))
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="claim-%s.xlsx"`, run.ID))
	if err := export.WriteReportXLSX(c.Writer, run.ID.String(), &report); err != nil {
		HandleError(c, err)
		return
	}
}

// documentContentType resolves the effective content type of an upload,
// falling back to the filename extension when the part header is generic.
func documentContentType(headerType, filename string) string {
	headerType = strings.TrimSpace(strings.Split(headerType, ";")[0])
	if domain.AllowedContentTypes[headerType] {
		return headerType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	}
	return headerType
}
