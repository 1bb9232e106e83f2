package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/config"
	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/store"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Data.DataDir = t.TempDir()
	return cfg
}

func testCatalog(t *testing.T) *store.Catalog {
	t.Helper()

	cat, err := store.Open(filepath.Join(t.TempDir(), "plant.db"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { _ = cat.Close() })

	stmts := []string{
		`CREATE TABLE batch_records (batch_no TEXT, job_number TEXT, operator TEXT)`,
		`INSERT INTO batch_records VALUES ('B-1001', 'J-17', 'M. Vance')`,
		`INSERT INTO batch_records VALUES ('B-1002', 'J-18', 'R. Ortiz')`,
	}
	for _, stmt := range stmts {
		if _, err := cat.DB().Exec(stmt); err != nil {
			t.Fatalf("exec: %v", err)
		}
	}
	return cat
}

func testRouter(t *testing.T, cat *store.Catalog) (*gin.Engine, *config.AppConfig) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig(t)
	cfg.Source.DefaultTable = "batch_records"
	if _, err := config.EnsureDataDir(cfg); err != nil {
		t.Fatalf("ensure data dir: %v", err)
	}

	h := NewHandlers(cfg, cat)
	r := gin.New()
	api := r.Group("/api")
	h.RegisterRoutes(api)
	return r, cfg
}

func templateBytes(t *testing.T) []byte {
	t.Helper()

	wb := excelize.NewFile()
	wb.SetSheetName("Sheet1", "Batch Log")
	for i, label := range []string{"BATCH NUMBER", "JOB NO.", "OPERATOR NAME"} {
		axis, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := wb.SetCellValue("Batch Log", axis, label); err != nil {
			t.Fatalf("set header: %v", err)
		}
	}

	var buf bytes.Buffer
	if _, err := wb.WriteTo(&buf); err != nil {
		t.Fatalf("serialize workbook: %v", err)
	}
	_ = wb.Close()
	return buf.Bytes()
}

func uploadTemplate(t *testing.T, r *gin.Engine) string {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "template.xlsx")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(templateBytes(t)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/templates", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("upload status: %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Code int `json:"code"`
		Data struct {
			TemplateID string   `json:"templateId"`
			Sheets     []string `json:"sheets"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if resp.Code != 0 || resp.Data.TemplateID == "" {
		t.Fatalf("upload failed: %s", w.Body.String())
	}
	return resp.Data.TemplateID
}

func TestUploadAndAnalyze(t *testing.T) {
	r, _ := testRouter(t, nil)
	id := uploadTemplate(t, r)

	req := httptest.NewRequest(http.MethodGet, "/api/templates/"+id+"/analysis", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("analysis status: %d", w.Code)
	}
	var resp struct {
		Code int `json:"code"`
		Data struct {
			Headers map[string][]struct {
				RawLabel string `json:"rawLabel"`
				Column   int    `json:"column"`
			} `json:"headers"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	headers := resp.Data.Headers["Batch Log"]
	if len(headers) != 3 || headers[0].RawLabel != "BATCH NUMBER" {
		t.Fatalf("unexpected headers: %+v", headers)
	}
}

func TestMapTemplate_FieldsFromCatalog(t *testing.T) {
	r, _ := testRouter(t, testCatalog(t))
	id := uploadTemplate(t, r)

	body, _ := json.Marshal(map[string]interface{}{})
	req := httptest.NewRequest(http.MethodPost, "/api/templates/"+id+"/map", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("map status: %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Code int `json:"code"`
		Data struct {
			Results map[string]struct {
				Mappings []struct {
					Field      string  `json:"field"`
					Confidence float64 `json:"confidence"`
				} `json:"mappings"`
				Unmapped []interface{} `json:"unmapped"`
			} `json:"results"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	result := resp.Data.Results["Batch Log"]
	if len(result.Mappings) != 3 || len(result.Unmapped) != 0 {
		t.Fatalf("unexpected mapping result: %s", w.Body.String())
	}
}

func TestSaveMappingAndReload(t *testing.T) {
	r, _ := testRouter(t, testCatalog(t))
	id := uploadTemplate(t, r)

	body, _ := json.Marshal(map[string]interface{}{"table": "batch_records"})
	req := httptest.NewRequest(http.MethodPost, "/api/templates/"+id+"/mapping", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("save status: %d body=%s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/mapping", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp struct {
		Code int               `json:"code"`
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data["BATCH_LOG_BATCH_NUMBER"] != "batch_no" {
		t.Fatalf("stored mapping = %v", resp.Data)
	}
}

func TestMapTemplate_InvalidThreshold(t *testing.T) {
	r, _ := testRouter(t, testCatalog(t))
	id := uploadTemplate(t, r)

	body, _ := json.Marshal(map[string]interface{}{"threshold": 1.5})
	req := httptest.NewRequest(http.MethodPost, "/api/templates/"+id+"/map", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != 3002 {
		t.Fatalf("expected threshold error code, got %d (%s)", resp.Code, resp.Message)
	}
}

func TestExportTemplate_WritesRows(t *testing.T) {
	r, cfg := testRouter(t, testCatalog(t))
	id := uploadTemplate(t, r)

	body, _ := json.Marshal(map[string]interface{}{"table": "batch_records"})
	req := httptest.NewRequest(http.MethodPost, "/api/templates/"+id+"/export", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("export status: %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Code int `json:"code"`
		Data struct {
			ExportID string `json:"exportId"`
			Rows     int    `json:"rows"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != 0 || resp.Data.Rows != 2 {
		t.Fatalf("export response: %s", w.Body.String())
	}

	wb, err := excelize.OpenFile(filepath.Join(cfg.Data.DataDir, "exports", resp.Data.ExportID+".xlsx"))
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer wb.Close()
	if got, _ := wb.GetCellValue("Batch Log", "A2"); got != "B-1001" {
		t.Fatalf("A2 = %q", got)
	}
	if got, _ := wb.GetCellValue("Batch Log", "C3"); got != "R. Ortiz" {
		t.Fatalf("C3 = %q", got)
	}
}

func TestDownloadExport_ServesAdvertisedFileName(t *testing.T) {
	r, _ := testRouter(t, testCatalog(t))
	id := uploadTemplate(t, r)

	body, _ := json.Marshal(map[string]interface{}{"table": "batch_records"})
	req := httptest.NewRequest(http.MethodPost, "/api/templates/"+id+"/export", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			ExportID string `json:"exportId"`
			FileName string `json:"fileName"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != 0 || resp.Data.FileName == "" {
		t.Fatalf("export response: %s", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/exports/"+resp.Data.ExportID+"/download", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("download status: %d", w.Code)
	}
	disposition := w.Header().Get("Content-Disposition")
	if !strings.Contains(disposition, resp.Data.FileName) {
		t.Fatalf("Content-Disposition %q does not carry %q", disposition, resp.Data.FileName)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/exports/no-such-id/download", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var errResp Response
	if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Code != 4006 {
		t.Fatalf("unknown export code = %d", errResp.Code)
	}
}

func TestUploadRejectsGarbage(t *testing.T) {
	r, _ := testRouter(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "not-excel.txt")
	fw.Write([]byte("plain text"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/templates", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code == 0 {
		t.Fatalf("garbage upload must be rejected")
	}
}
