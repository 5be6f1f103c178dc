// Package devapi is a local stand-in for the match API. It answers the same
// GraphQL operations the client sends, from a generated in-memory dataset.
package devapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jask/skillmatch/internal/model"
	"github.com/jask/skillmatch/internal/query/graphql"
)

const maxRequestBytes = 1 << 20

// Options tunes the dev server.
type Options struct {
	// Latency delays every GraphQL answer, to exercise loading states.
	Latency time.Duration
	Logger  *zap.Logger
}

type server struct {
	data    *Dataset
	latency time.Duration
	log     *zap.Logger
}

// NewRouter returns a gin engine serving POST /graphql and GET /health.
func NewRouter(data *Dataset, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &server{data: data, latency: opts.Latency, log: opts.Logger.With(zap.String("component", "devapi"))}

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), s.accessLog(), sizeLimit(maxRequestBytes))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/graphql", s.handleGraphQL)
	return router
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Duration("took", time.Since(start)))
	}
}

func sizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

func gqlError(c *gin.Context, status int, class, msg string) {
	c.JSON(status, graphql.Response{Errors: []graphql.Error{{
		Message:    msg,
		Extensions: map[string]any{"classification": class},
	}}})
}

func (s *server) handleGraphQL(c *gin.Context) {
	var req graphql.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		gqlError(c, http.StatusBadRequest, graphql.ClassBadRequest, "invalid request body: "+err.Error())
		return
	}
	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-c.Request.Context().Done():
			return
		}
	}
	vars := variables(req.Variables)

	switch req.OperationName {
	case graphql.OpSearchMatches:
		mode, ok := s.mode(c, vars.str("mode"))
		if !ok {
			return
		}
		skills := vars.strs("skills")
		if len(skills) == 0 {
			gqlError(c, http.StatusOK, graphql.ClassBadRequest, "skills must not be empty")
			return
		}
		limit := vars.int("limit", 10)
		matches := s.data.Search(mode, skills, vars.str("experience"), limit, vars.int("offset", 0))
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"searchMatches": gin.H{"matches": matches}}})

	case graphql.OpRecruitDetail:
		rec := s.data.Recruit(vars.str("id"))
		if rec == nil {
			gqlError(c, http.StatusOK, graphql.ClassNotFound, "recruit not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"getRecruit": rec}})

	case graphql.OpCandidateDetail:
		cand := s.data.Candidate(vars.str("id"))
		if cand == nil {
			gqlError(c, http.StatusOK, graphql.ClassNotFound, "candidate not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"getCandidate": cand}})

	case graphql.OpDashboardData:
		mode, ok := s.mode(c, vars.str("userMode"))
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"dashboardData": s.data.Dashboard(mode)}})

	case graphql.OpSearchStatistics:
		mode, ok := s.mode(c, vars.str("mode"))
		if !ok {
			return
		}
		top, total := s.data.Statistics(mode, vars.strs("skills"), vars.int("limit", 15))
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"searchStatistics": gin.H{"topSkills": top, "totalCount": total}}})

	case graphql.OpSkillCategories:
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"skillCategories": s.data.Categories}})

	case graphql.OpCategoryDist:
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"getCategoryDistribution": s.data.CategoryDistribution(vars.strs("skills"))}})

	case graphql.OpCompetencyMatch:
		mode, ok := s.mode(c, vars.str("mode"))
		if !ok {
			return
		}
		m, found := s.data.Competency(mode, vars.str("targetId"), vars.strs("searchedSkills"))
		if !found {
			gqlError(c, http.StatusOK, graphql.ClassNotFound, "target not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"getSkillCompetencyMatch": m}})

	default:
		gqlError(c, http.StatusBadRequest, graphql.ClassBadRequest, "unknown operation "+req.OperationName)
	}
}

func (s *server) mode(c *gin.Context, raw string) (model.Mode, bool) {
	m, err := graphql.ParseWireMode(raw)
	if err != nil {
		gqlError(c, http.StatusOK, graphql.ClassBadRequest, err.Error())
		return "", false
	}
	return m, true
}

// variables reads loosely typed JSON variables.
type variables map[string]any

func (v variables) str(k string) string {
	s, _ := v[k].(string)
	return s
}

func (v variables) strs(k string) []string {
	raw, _ := v[k].([]any)
	out := make([]string, 0, len(raw))
	for _, x := range raw {
		if s, ok := x.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (v variables) int(k string, def int) int {
	switch n := v[k].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return def
}
