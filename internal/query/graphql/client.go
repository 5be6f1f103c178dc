// Package graphql is the HTTP transport of the match API.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jask/skillmatch/internal/model"
	"github.com/jask/skillmatch/internal/query"
)

const maxBody = 8 << 20

// Client implements query.Executor against a GraphQL endpoint.
type Client struct {
	Endpoint string
	HTTP     *http.Client
	Logger   *zap.Logger
}

func New(endpoint string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		Endpoint: endpoint,
		HTTP:     &http.Client{Timeout: timeout},
		Logger:   logger.With(zap.String("component", "graphql")),
	}
}

var _ query.Executor = (*Client)(nil)

func (c *Client) Search(ctx context.Context, req query.SearchRequest) (query.SearchResponse, error) {
	vars := map[string]any{
		"mode":       WireMode(req.Mode),
		"skills":     req.Criteria,
		"experience": req.Experience,
		"limit":      req.Limit,
		"offset":     req.Offset,
	}
	if req.SortKey != "" {
		vars["sortBy"] = req.SortKey
	}
	var out SearchMatchesData
	if err := c.do(ctx, query.OpSearch, req.Mode, Request{Query: searchMatchesQuery, OperationName: OpSearchMatches, Variables: vars}, &out); err != nil {
		return query.SearchResponse{}, err
	}
	return query.SearchResponse{Records: out.SearchMatches.Matches}, nil
}

func (c *Client) Detail(ctx context.Context, req query.DetailRequest) (model.Detail, error) {
	vars := map[string]any{"id": req.ID}
	if req.Mode == model.Recruiter {
		var out CandidateData
		if err := c.do(ctx, query.OpDetail, req.Mode, Request{Query: candidateDetailQuery, OperationName: OpCandidateDetail, Variables: vars}, &out); err != nil {
			return model.Detail{}, err
		}
		if out.GetCandidate == nil {
			return model.Detail{}, notFound(req)
		}
		return model.Detail{Mode: req.Mode, Candidate: out.GetCandidate}, nil
	}
	var out RecruitData
	if err := c.do(ctx, query.OpDetail, req.Mode, Request{Query: recruitDetailQuery, OperationName: OpRecruitDetail, Variables: vars}, &out); err != nil {
		return model.Detail{}, err
	}
	if out.GetRecruit == nil {
		return model.Detail{}, notFound(req)
	}
	return model.Detail{Mode: req.Mode, Recruit: out.GetRecruit}, nil
}

func notFound(req query.DetailRequest) error {
	return &query.Failure{Kind: query.KindValidation, Op: query.OpDetail, Mode: req.Mode, Message: fmt.Sprintf("record %s not found", req.ID)}
}

func (c *Client) Dashboard(ctx context.Context, req query.DashboardRequest) (query.DashboardResponse, error) {
	var out DashboardData
	vars := map[string]any{"userMode": WireMode(req.Mode)}
	if err := c.do(ctx, query.OpDashboard, req.Mode, Request{Query: dashboardQuery, OperationName: OpDashboardData, Variables: vars}, &out); err != nil {
		return query.DashboardResponse{}, err
	}
	return query.DashboardResponse{Categories: out.DashboardData}, nil
}

func (c *Client) Statistics(ctx context.Context, req query.StatisticsRequest) (query.StatisticsResponse, error) {
	var out StatisticsData
	vars := map[string]any{"mode": WireMode(req.Mode), "skills": req.Criteria, "limit": req.Limit}
	if err := c.do(ctx, query.OpStatistics, req.Mode, Request{Query: statisticsQuery, OperationName: OpSearchStatistics, Variables: vars}, &out); err != nil {
		return query.StatisticsResponse{}, err
	}
	return query.StatisticsResponse{
		TopSkills:  out.SearchStatistics.TopSkills,
		TotalCount: out.SearchStatistics.TotalCount,
	}, nil
}

func (c *Client) SkillCategories(ctx context.Context) ([]model.SkillCategory, error) {
	var out SkillCategoriesData
	if err := c.do(ctx, query.OpCatalog, "", Request{Query: skillCategoriesQuery, OperationName: OpSkillCategories}, &out); err != nil {
		return nil, err
	}
	return out.SkillCategories, nil
}

func (c *Client) CategoryDistribution(ctx context.Context, req query.CategoryDistributionRequest) ([]model.CategoryShare, error) {
	var out CategoryDistributionData
	vars := map[string]any{"skills": req.Skills}
	if err := c.do(ctx, query.OpCategories, "", Request{Query: categoryDistributionQuery, OperationName: OpCategoryDist, Variables: vars}, &out); err != nil {
		return nil, err
	}
	return out.GetCategoryDistribution, nil
}

func (c *Client) SkillCompetency(ctx context.Context, req query.CompetencyRequest) (model.SkillCompetency, error) {
	var out CompetencyMatchData
	vars := map[string]any{
		"mode":           WireMode(req.Mode),
		"targetId":       req.TargetID,
		"searchedSkills": req.SearchedSkills,
	}
	if err := c.do(ctx, query.OpCompetency, req.Mode, Request{Query: competencyMatchQuery, OperationName: OpCompetencyMatch, Variables: vars}, &out); err != nil {
		return model.SkillCompetency{}, err
	}
	if out.GetSkillCompetencyMatch == nil {
		return model.SkillCompetency{}, &query.Failure{Kind: query.KindValidation, Op: query.OpCompetency, Mode: req.Mode, Message: fmt.Sprintf("record %s not found", req.TargetID)}
	}
	return *out.GetSkillCompetencyMatch, nil
}

// do posts body and decodes data into out. Every failure comes back as a
// *query.Failure.
func (c *Client) do(ctx context.Context, op query.Op, mode model.Mode, body Request, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &query.Failure{Kind: query.KindValidation, Op: op, Mode: mode, Err: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return &query.Failure{Kind: query.KindValidation, Op: op, Mode: mode, Err: err}
	}
	reqID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", reqID)

	log := c.Logger.With(zap.String("operation", body.OperationName), zap.String("request_id", reqID))
	start := time.Now()
	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		f := query.Classify(err, op, mode)
		// http.Client.Timeout surfaces as a net error, not a context error
		if f.Kind == query.KindNetwork && isTimeout(err) {
			f.Kind = query.KindTimeout
		}
		log.Debug("request failed", zap.Error(err), zap.Stringer("kind", f.Kind))
		return f
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return query.Classify(err, op, mode)
	}
	log.Debug("response", zap.Int("status", resp.StatusCode), zap.Duration("took", time.Since(start)))

	var env Response
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= 500 {
		return &query.Failure{Kind: query.KindServer, Op: op, Mode: mode, Status: resp.StatusCode, Message: firstMessage(env, resp.Status)}
	}
	if resp.StatusCode >= 400 {
		return &query.Failure{Kind: query.KindValidation, Op: op, Mode: mode, Status: resp.StatusCode, Message: firstMessage(env, resp.Status)}
	}
	if decodeErr != nil {
		return &query.Failure{Kind: query.KindServer, Op: op, Mode: mode, Status: resp.StatusCode, Message: "malformed response", Err: decodeErr}
	}
	if len(env.Errors) > 0 {
		kind := query.KindServer
		switch env.Errors[0].Classification() {
		case ClassBadRequest, ClassNotFound:
			kind = query.KindValidation
		}
		return &query.Failure{Kind: kind, Op: op, Mode: mode, Status: resp.StatusCode, Message: env.Errors[0].Message}
	}
	if len(env.Data) == 0 {
		return &query.Failure{Kind: query.KindServer, Op: op, Mode: mode, Status: resp.StatusCode, Message: "empty response"}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &query.Failure{Kind: query.KindServer, Op: op, Mode: mode, Status: resp.StatusCode, Message: "malformed data", Err: err}
	}
	return nil
}

func firstMessage(env Response, fallback string) string {
	if len(env.Errors) > 0 && env.Errors[0].Message != "" {
		return env.Errors[0].Message
	}
	return fallback
}

type timeoutError interface{ Timeout() bool }

func isTimeout(err error) bool {
	var te timeoutError
	return errors.As(err, &te) && te.Timeout()
}
