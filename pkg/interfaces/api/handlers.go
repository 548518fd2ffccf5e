package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/application/services"
	"github.com/vsinha/forecast-recon/pkg/domain/entities"
	apperrors "github.com/vsinha/forecast-recon/pkg/domain/errors"
	"github.com/vsinha/forecast-recon/pkg/domain/repositories"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/events"
	"github.com/vsinha/forecast-recon/pkg/interfaces/cli/output"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthResponse reports whether a dataset is loaded. LastLoadError is set
// while the most recent reload has failed; an older dataset may still be served.
type HealthResponse struct {
	Status         string `json:"status"`
	DataLoaded     bool   `json:"data_loaded"`
	DatasetVersion string `json:"dataset_version,omitempty"`
	LastLoadError  string `json:"last_load_error,omitempty"`
}

// ReloadResponse describes the dataset installed by a reload
type ReloadResponse struct {
	DatasetVersion string                        `json:"dataset_version"`
	Source         string                        `json:"source"`
	Normalization  *entities.NormalizationReport `json:"normalization"`
}

// Handlers serves the query API
type Handlers struct {
	queries  *services.QueryService
	datasets *services.DatasetService
	repo     repositories.DatasetRepository
	events   events.EventStore
	defaults dto.Query
	export   services.ExportOptions
	logger   *slog.Logger
}

// NewHandlers creates the API handlers. defaults is the query request bodies
// are decoded over. eventStore may be nil.
func NewHandlers(
	queries *services.QueryService,
	datasets *services.DatasetService,
	repo repositories.DatasetRepository,
	eventStore events.EventStore,
	defaults dto.Query,
	export services.ExportOptions,
	logger *slog.Logger,
) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		queries:  queries,
		datasets: datasets,
		repo:     repo,
		events:   eventStore,
		defaults: defaults,
		export:   export,
		logger:   logger,
	}
}

// Health handles GET /healthz
func (h *Handlers) Health(c *gin.Context) {
	resp := HealthResponse{Status: "ok"}
	if snapshot, err := h.repo.Snapshot(); err == nil {
		resp.DataLoaded = true
		resp.DatasetVersion = snapshot.Version
	}
	if failure, ok := events.PendingFailure(h.events); ok {
		resp.Status = "degraded"
		resp.LastLoadError = failure.Error
	}
	c.JSON(http.StatusOK, resp)
}

// Catalog handles GET /api/v1/catalog?brand=A&brand=B
func (h *Handlers) Catalog(c *gin.Context) {
	catalog, err := h.queries.Catalog(c.Request.Context(), c.QueryArray("brand"))
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, catalog)
}

// Query handles POST /api/v1/query
func (h *Handlers) Query(c *gin.Context) {
	q, err := h.decodeQuery(c.Request.Body)
	if err != nil {
		h.sendError(c, err)
		return
	}
	result, err := h.queries.Execute(c.Request.Context(), q)
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Export handles POST /api/v1/export?format=csv|xlsx|json
func (h *Handlers) Export(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", output.FormatCSV))
	if format != output.FormatCSV && format != output.FormatXLSX && format != output.FormatJSON {
		h.sendError(c, apperrors.NewInvalidConfigurationError("format", format, "expected csv, xlsx or json"))
		return
	}

	q, err := h.decodeQuery(c.Request.Body)
	if err != nil {
		h.sendError(c, err)
		return
	}
	result, err := h.queries.Execute(c.Request.Context(), q)
	if err != nil {
		h.sendError(c, err)
		return
	}

	opts := h.export
	opts.IncludeItemParts = opts.IncludeItemParts || c.Query("item_parts") == "true"
	table := services.Export(result.Records, opts)

	var buf bytes.Buffer
	var contentType string
	switch format {
	case output.FormatCSV:
		contentType = "text/csv; charset=utf-8"
		err = output.WriteCSV(&buf, table, c.DefaultQuery("bom", "true") != "false")
	case output.FormatXLSX:
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = output.WriteXLSX(&buf, result, table)
	case output.FormatJSON:
		contentType = "application/json; charset=utf-8"
		err = output.WriteJSON(&buf, table)
	}
	if err != nil {
		h.sendError(c, fmt.Errorf("failed to render %s export: %w", format, err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, output.FileName(result, format)))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// Reload handles POST /api/v1/dataset/reload. A failed reload keeps the previous dataset.
func (h *Handlers) Reload(c *gin.Context) {
	snapshot, err := h.datasets.Reload(c.Request.Context())
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, ReloadResponse{
		DatasetVersion: snapshot.Version,
		Source:         snapshot.Source,
		Normalization:  snapshot.Report,
	})
}

// decodeQuery reads a JSON query over the configured defaults. An empty body
// selects the defaults.
func (h *Handlers) decodeQuery(body io.Reader) (dto.Query, error) {
	q := h.defaults
	q.GroupBy = append([]entities.Dimension(nil), h.defaults.GroupBy...)

	if body == nil {
		return q, nil
	}
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&q); err != nil {
		if errors.Is(err, io.EOF) {
			return q, nil
		}
		return dto.Query{}, apperrors.NewInvalidConfigurationError("body", nil, fmt.Sprintf("invalid query JSON: %v", err))
	}
	var extra json.RawMessage
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		return dto.Query{}, apperrors.NewInvalidConfigurationError("body", nil, "unexpected data after query JSON")
	}
	return q, nil
}

func (h *Handlers) sendError(c *gin.Context, err error) {
	status := apperrors.StatusCode(err)
	reqID := RequestID(c)

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err, "status", status, "request_id", reqID)
	}
	_ = c.Error(err)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     err.Error(),
		Kind:      errorKind(err),
		RequestID: reqID,
	})
}

func errorKind(err error) string {
	switch {
	case apperrors.IsInvalidConfiguration(err):
		return "invalid_configuration"
	case apperrors.IsSourceUnavailable(err):
		return "source_unavailable"
	default:
		return "internal"
	}
}
