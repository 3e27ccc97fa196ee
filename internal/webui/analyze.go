package webui

import (
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"triago/internal/app"
	"triago/internal/models"
	"triago/internal/table"
)

// analyzeRequest carries the parsed multipart form of one analysis request.
// Absent fields fall back to the configured defaults.
type analyzeRequest struct {
	File         *multipart.FileHeader
	Types        []string
	Columns      []string
	IDColumn     string
	Explanations *bool
}

// AnalyzeHandler runs the uploaded table through the pipeline and returns the
// written output file as a download.
func (s *Server) AnalyzeHandler(c *gin.Context) {
	req, err := parseAnalyzeRequest(c)
	if err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	f, err := req.File.Open()
	if err != nil {
		BadRequest(c, "Failed to open uploaded file: "+err.Error())
		return
	}
	defer f.Close()

	tbl, err := table.Read(f)
	if err != nil {
		BadRequest(c, fmt.Sprintf("Failed to parse %s: %v", req.File.Filename, err))
		return
	}

	report, outPath, err := s.requestApp(req).AnalyzeTable(c.Request.Context(), tbl, req.File.Filename, app.RunOptions{
		IDColumn: req.IDColumn,
		Columns:  req.Columns,
	})
	if err != nil {
		if errors.Is(err, models.ErrConfiguration) {
			BadRequest(c, err.Error())
			return
		}
		Internal(c, fmt.Sprintf("Analysis of %s failed: %v", req.File.Filename, err))
		return
	}

	log.Infof("Web analysis of %s done: %d complete, %d incomplete, %d failed.",
		req.File.Filename, report.Complete, report.Incomplete, report.Failed)

	c.Header("X-Run-Id", report.JobID.String())
	c.Header("X-Run-Status", report.Status)
	c.FileAttachment(outPath, filepath.Base(outPath))
}

// requestApp returns the app to run this request with. Form fields that
// override configured defaults get a shallow config copy so concurrent
// requests never see each other's selections.
func (s *Server) requestApp(req *analyzeRequest) *app.App {
	if len(req.Types) == 0 && req.Explanations == nil {
		return s.App
	}

	cfg := *s.App.Config
	if len(req.Types) > 0 {
		cfg.Analysis.Types = req.Types
	}
	if req.Explanations != nil {
		cfg.Analysis.IncludeExplanations = *req.Explanations
	}

	return &app.App{
		Config:  &cfg,
		Client:  s.App.Client,
		Tracker: s.App.Tracker,
		History: s.App.History,
	}
}

// parseAnalyzeRequest parses and validates the multipart analysis form.
func parseAnalyzeRequest(c *gin.Context) (*analyzeRequest, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing uploaded file: %w", err)
	}
	if ext := strings.ToLower(filepath.Ext(file.Filename)); ext != ".csv" && ext != "" {
		return nil, fmt.Errorf("unsupported file type %s (want .csv)", ext)
	}

	req := &analyzeRequest{
		File:     file,
		Types:    c.PostFormArray("types"),
		IDColumn: strings.TrimSpace(c.PostForm("id_column")),
	}

	if cols := c.PostForm("columns"); cols != "" {
		for _, col := range strings.Split(cols, ",") {
			if col = strings.TrimSpace(col); col != "" {
				req.Columns = append(req.Columns, col)
			}
		}
	}

	// Checkboxes only submit when ticked, so the form carries an explicit
	// marker field to distinguish "unticked" from "not sent".
	if _, sent := c.GetPostForm("explanations_sent"); sent {
		_, ticked := c.GetPostForm("explanations")
		req.Explanations = &ticked
	}

	return req, nil
}
