package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/config"
	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/mapper"
	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/model"
	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/service/excel"
	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/service/mapping"
	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/store"
)

// Handlers wires the template analyzer, the mapping store and the source
// catalog behind the HTTP API.
type Handlers struct {
	cfg      *config.AppConfig
	analyzer *excel.Analyzer
	exporter *excel.Exporter
	mappings *mapping.Store
	catalog  *store.Catalog

	uploads   map[string]*uploadedTemplate
	uploadsMu sync.RWMutex

	exports   map[string]stagedExport
	exportsMu sync.RWMutex
}

type stagedExport struct {
	Path     string
	FileName string
}

type uploadedTemplate struct {
	FileName string
	Bytes    []byte
}

// NewHandlers creates the API handlers. catalog may be nil when no source
// database is configured.
func NewHandlers(cfg *config.AppConfig, catalog *store.Catalog) *Handlers {
	detector := mapper.NewDetector(cfg.Mapping.DetectorConfig())
	scorer := mapper.NewWeightedScorer(cfg.Mapping.TokenWeight, cfg.Mapping.CharWeight)

	return &Handlers{
		cfg:      cfg,
		analyzer: excel.NewAnalyzer(detector, mapper.NewAutoMapper(scorer)),
		exporter: excel.NewExporter(),
		mappings: mapping.NewStore(config.GetDataPath(cfg, "", "mapping.json")),
		catalog:  catalog,
		uploads:  make(map[string]*uploadedTemplate),
		exports:  make(map[string]stagedExport),
	}
}

// Response is the common API envelope.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

func errorResponse(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{Code: code, Message: message})
}

// RegisterRoutes attaches all API routes.
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/templates", h.UploadTemplate)
	api.GET("/templates/:id/analysis", h.AnalyzeTemplate)
	api.POST("/templates/:id/map", h.MapTemplate)
	api.POST("/templates/:id/mapping", h.SaveMapping)
	api.GET("/mapping", h.GetStoredMapping)
	api.POST("/templates/:id/export", h.ExportTemplate)
	api.GET("/exports/:id/download", h.DownloadExport)
	api.GET("/source/tables", h.ListTables)
	api.GET("/source/tables/:table/fields", h.ListFields)
}

// UploadTemplate receives a template workbook and caches it for analysis.
func (h *Handlers) UploadTemplate(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		errorResponse(c, 1001, "missing template file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		errorResponse(c, 1002, "failed to read upload")
		return
	}

	// Reject anything excelize cannot open before caching it.
	wb, err := excel.OpenWorkbookReader(bytes.NewReader(data))
	if err != nil {
		errorResponse(c, 1003, "not a readable workbook")
		return
	}
	sheets := wb.GetSheetList()
	_ = wb.Close()

	id := uuid.New().String()
	h.uploadsMu.Lock()
	h.uploads[id] = &uploadedTemplate{FileName: header.Filename, Bytes: data}
	h.uploadsMu.Unlock()

	success(c, gin.H{
		"templateId": id,
		"fileName":   header.Filename,
		"sheets":     sheets,
	})
}

func (h *Handlers) upload(id string) (*uploadedTemplate, bool) {
	h.uploadsMu.RLock()
	defer h.uploadsMu.RUnlock()
	u, ok := h.uploads[id]
	return u, ok
}

// AnalyzeTemplate reports detected header candidates per sheet.
func (h *Handlers) AnalyzeTemplate(c *gin.Context) {
	u, ok := h.upload(c.Param("id"))
	if !ok {
		errorResponse(c, 2001, "unknown template")
		return
	}

	wb, err := excel.OpenWorkbookReader(bytes.NewReader(u.Bytes))
	if err != nil {
		errorResponse(c, 2002, err.Error())
		return
	}
	defer wb.Close()

	analysis, err := h.analyzer.AnalyzeWorkbook(wb)
	if err != nil {
		errorResponse(c, 2003, err.Error())
		return
	}
	success(c, analysis)
}

type mapRequest struct {
	Fields    []string `json:"fields"`
	Table     string   `json:"table"`
	Threshold *float64 `json:"threshold"`
	Upsert    bool     `json:"upsert"`
}

// resolveFields takes the request's explicit field list, or reads the column
// names of the requested (or default) source table.
func (h *Handlers) resolveFields(req mapRequest) ([]model.FieldName, error) {
	if len(req.Fields) > 0 {
		return req.Fields, nil
	}
	if h.catalog == nil {
		return nil, errors.New("no source database configured and no fields supplied")
	}
	table := req.Table
	if table == "" {
		table = h.cfg.Source.DefaultTable
	}
	if table == "" {
		return nil, errors.New("no table specified")
	}
	return h.catalog.ListFields(table)
}

func (h *Handlers) threshold(req mapRequest) float64 {
	if req.Threshold != nil {
		return *req.Threshold
	}
	return h.cfg.Mapping.ConfidenceThreshold
}

func (h *Handlers) runMapping(c *gin.Context, req mapRequest) (model.TemplateMapping, bool) {
	u, ok := h.upload(c.Param("id"))
	if !ok {
		errorResponse(c, 2001, "unknown template")
		return model.TemplateMapping{}, false
	}

	fields, err := h.resolveFields(req)
	if err != nil {
		errorResponse(c, 3001, err.Error())
		return model.TemplateMapping{}, false
	}

	wb, err := excel.OpenWorkbookReader(bytes.NewReader(u.Bytes))
	if err != nil {
		errorResponse(c, 2002, err.Error())
		return model.TemplateMapping{}, false
	}
	defer wb.Close()

	tm, err := h.analyzer.MapWorkbook(wb, fields, h.threshold(req))
	if err != nil {
		if errors.Is(err, mapper.ErrInvalidThreshold) {
			errorResponse(c, 3002, err.Error())
		} else {
			errorResponse(c, 3003, err.Error())
		}
		return model.TemplateMapping{}, false
	}
	return tm, true
}

// MapTemplate runs auto-mapping and returns assignments, confidences and
// the unmapped headers needing manual resolution.
func (h *Handlers) MapTemplate(c *gin.Context) {
	var req mapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, 1001, "invalid request body")
		return
	}
	tm, ok := h.runMapping(c, req)
	if !ok {
		return
	}
	success(c, tm)
}

// SaveMapping runs auto-mapping and persists the accepted assignments as the
// stored mapping. By default the file is overwritten wholesale; upsert merges
// into the existing entries instead.
func (h *Handlers) SaveMapping(c *gin.Context) {
	var req mapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, 1001, "invalid request body")
		return
	}
	tm, ok := h.runMapping(c, req)
	if !ok {
		return
	}

	var (
		stored *model.StoredMapping
		err    error
	)
	if req.Upsert {
		stored, err = h.mappings.Upsert(tm.Results)
	} else {
		stored, err = h.mappings.Save(tm.Results)
	}
	if err != nil {
		errorResponse(c, 3004, err.Error())
		return
	}

	success(c, gin.H{
		"entries": stored.Len(),
		"mapping": stored,
		"skipped": tm.Skipped,
	})
}

// GetStoredMapping returns the persisted flat mapping.
func (h *Handlers) GetStoredMapping(c *gin.Context) {
	stored, err := h.mappings.Load()
	if err != nil {
		errorResponse(c, 3005, err.Error())
		return
	}
	success(c, stored)
}

type exportRequest struct {
	mapRequest
	Limit int `json:"limit"`
}

// ExportTemplate fills the uploaded template with source rows and stages the
// finished workbook for download.
func (h *Handlers) ExportTemplate(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, 1001, "invalid request body")
		return
	}
	if h.catalog == nil {
		errorResponse(c, 4001, "no source database configured")
		return
	}
	table := req.Table
	if table == "" {
		table = h.cfg.Source.DefaultTable
	}
	if table == "" {
		errorResponse(c, 4002, "no table specified")
		return
	}

	tm, ok := h.runMapping(c, req.mapRequest)
	if !ok {
		return
	}

	u, _ := h.upload(c.Param("id"))
	wb, err := excel.OpenWorkbookReader(bytes.NewReader(u.Bytes))
	if err != nil {
		errorResponse(c, 2002, err.Error())
		return
	}
	defer wb.Close()

	totalRows := 0
	for _, sheet := range wb.GetSheetList() {
		result, ok := tm.Results[sheet]
		if !ok || len(result.Mappings) == 0 {
			continue
		}
		fields := make([]model.FieldName, 0, len(result.Mappings))
		for _, m := range result.Mappings {
			fields = append(fields, m.Field)
		}
		records, err := h.catalog.FetchRows(table, fields, req.Limit)
		if err != nil {
			errorResponse(c, 4003, err.Error())
			return
		}
		written, err := h.exporter.FillSheet(wb, result, fields, records)
		if err != nil {
			errorResponse(c, 4004, err.Error())
			return
		}
		totalRows += written
	}

	exportID := uuid.New().String()
	fileName := fmt.Sprintf("report_%s.xlsx", time.Now().Format("20060102_150405"))
	path := config.GetDataPath(h.cfg, "exports", exportID+".xlsx")
	if err := wb.SaveAs(path); err != nil {
		errorResponse(c, 4005, err.Error())
		return
	}

	h.exportsMu.Lock()
	h.exports[exportID] = stagedExport{Path: path, FileName: fileName}
	h.exportsMu.Unlock()

	success(c, gin.H{
		"exportId": exportID,
		"fileName": fileName,
		"rows":     totalRows,
		"skipped":  tm.Skipped,
	})
}

// DownloadExport streams a staged export file.
func (h *Handlers) DownloadExport(c *gin.Context) {
	h.exportsMu.RLock()
	staged, ok := h.exports[c.Param("id")]
	h.exportsMu.RUnlock()
	if !ok {
		errorResponse(c, 4006, "unknown export")
		return
	}
	c.FileAttachment(staged.Path, staged.FileName)
}

// ListTables lists the tables of the source database.
func (h *Handlers) ListTables(c *gin.Context) {
	if h.catalog == nil {
		errorResponse(c, 4001, "no source database configured")
		return
	}
	tables, err := h.catalog.ListTables()
	if err != nil {
		errorResponse(c, 4003, err.Error())
		return
	}
	success(c, tables)
}

// ListFields lists the candidate field names of one source table.
func (h *Handlers) ListFields(c *gin.Context) {
	if h.catalog == nil {
		errorResponse(c, 4001, "no source database configured")
		return
	}
	fields, err := h.catalog.ListFields(c.Param("table"))
	if err != nil {
		errorResponse(c, 4003, err.Error())
		return
	}
	success(c, fields)
}
