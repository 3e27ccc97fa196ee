// Package webui serves the browser front end: an upload form backed by the
// same analysis pipeline the CLI drives, plus a small JSON API for the
// analysis catalog and run history.
package webui

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"triago/internal/analysis"
	"triago/internal/app"
	"triago/internal/models"
)

type Server struct {
	App *app.App
}

func NewServer(a *app.App) *Server {
	return &Server{App: a}
}

// Router builds the gin engine with all routes attached. The caller decides
// whether to Run it or mount it in a test server.
func (s *Server) Router() *gin.Engine {
	router := gin.Default() // Includes logger and recovery middleware
	router.SetHTMLTemplate(indexTemplate)

	router.GET("/", s.IndexHandler)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/analyze", s.AnalyzeHandler)
		v1.GET("/types", s.TypesHandler)
		v1.GET("/history", s.HistoryHandler)
	}

	router.NoRoute(func(c *gin.Context) {
		NotFound(c, "No such route: "+c.Request.URL.Path)
	})

	return router
}

// IndexHandler renders the upload form with the analysis catalog grouped the
// way the interactive pickers group it.
func (s *Server) IndexHandler(c *gin.Context) {
	type typeGroup struct {
		Name string
		Defs []analysis.Definition
	}

	groups := make([]typeGroup, 0, len(analysis.Groups()))
	for _, g := range analysis.Groups() {
		groups = append(groups, typeGroup{Name: g, Defs: analysis.ByGroup(g)})
	}

	preselected := make(map[string]bool, len(s.App.Config.Analysis.Types))
	for _, key := range s.App.Config.Analysis.Types {
		preselected[key] = true
	}

	c.HTML(http.StatusOK, "index", gin.H{
		"Provider":     s.App.Config.Provider,
		"Model":        s.App.Config.Model,
		"Groups":       groups,
		"Preselected":  preselected,
		"Explanations": s.App.Config.Analysis.IncludeExplanations,
	})
}

// TypesHandler lists the analysis catalog as JSON.
func (s *Server) TypesHandler(c *gin.Context) {
	type typeInfo struct {
		Key     string   `json:"key"`
		Label   string   `json:"label"`
		Group   string   `json:"group"`
		Answers []string `json:"answers,omitempty"`
	}

	all := analysis.All()
	types := make([]typeInfo, 0, len(all))
	for _, d := range all {
		types = append(types, typeInfo{
			Key:     d.Key(),
			Label:   d.Label(),
			Group:   d.Group,
			Answers: d.Answers,
		})
	}

	c.JSON(http.StatusOK, gin.H{"types": types})
}

// HistoryHandler lists recent runs from the history store.
func (s *Server) HistoryHandler(c *gin.Context) {
	limit := 20
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			BadRequest(c, "Invalid limit: "+l)
			return
		}
		limit = parsed
	}

	if s.App.History == nil {
		c.JSON(http.StatusOK, gin.H{"runs": []*models.RunRecord{}})
		return
	}

	runs, err := s.App.History.ListRuns(c.Request.Context(), limit)
	if err != nil {
		Internal(c, "Failed to list runs: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
