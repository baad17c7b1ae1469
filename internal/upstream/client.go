// Package upstream talks to the authoritative quest dataset over GraphQL.
// The scraper never writes here; it only reads the trader roster and the
// prior task records it reconciles against.
package upstream

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

// Config controls endpoint selection and retry behavior.
type Config struct {
	Endpoint       string
	Timeout        time.Duration
	MaxRetries     int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// Client fetches roster and task data from the upstream GraphQL endpoint.
type Client struct {
	http     *resty.Client
	endpoint string
	logger   *zap.Logger
}

// New builds a Client with retry and backoff applied at the transport layer.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = 500 * time.Millisecond
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 8 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	http := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.BackoffInitial).
		SetRetryMaxWaitTime(cfg.BackoffMax).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &Client{http: http, endpoint: cfg.Endpoint, logger: logger}
}

type graphqlRequest struct {
	Query string `json:"query"`
}

type graphqlError struct {
	Message string `json:"message"`
}

const rosterQuery = `{ traders { id name } }`

const tasksQuery = `{
  tasks {
    id
    name
    wikiLink
    minPlayerLevel
    experience
    kappaRequired
    lightkeeperRequired
    trader { id name }
    map { name }
    taskRequirements { task { id name } }
  }
}`

// Roster returns the authoritative trader list.
func (c *Client) Roster(ctx context.Context) ([]scrape.Trader, error) {
	var resp struct {
		Data struct {
			Traders []scrape.Trader `json:"traders"`
		} `json:"data"`
		Errors []graphqlError `json:"errors"`
	}
	if err := c.query(ctx, rosterQuery, &resp); err != nil {
		return nil, fmt.Errorf("fetch trader roster: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("fetch trader roster: upstream error: %s", resp.Errors[0].Message)
	}
	return resp.Data.Traders, nil
}

// upstreamTask mirrors the upstream schema; mapped to scrape.Task locally.
type upstreamTask struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	WikiLink            string `json:"wikiLink"`
	MinPlayerLevel      int    `json:"minPlayerLevel"`
	Experience          int    `json:"experience"`
	KappaRequired       *bool  `json:"kappaRequired"`
	LightkeeperRequired *bool  `json:"lightkeeperRequired"`
	Trader              struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"trader"`
	Map *struct {
		Name string `json:"name"`
	} `json:"map"`
	TaskRequirements []struct {
		Task struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"task"`
	} `json:"taskRequirements"`
}

// Quests returns the prior authoritative task records used for diffing and
// predecessor reconciliation.
func (c *Client) Quests(ctx context.Context) ([]scrape.Task, error) {
	var resp struct {
		Data struct {
			Tasks []upstreamTask `json:"tasks"`
		} `json:"data"`
		Errors []graphqlError `json:"errors"`
	}
	if err := c.query(ctx, tasksQuery, &resp); err != nil {
		return nil, fmt.Errorf("fetch upstream tasks: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("fetch upstream tasks: upstream error: %s", resp.Errors[0].Message)
	}
	tasks := make([]scrape.Task, 0, len(resp.Data.Tasks))
	for _, t := range resp.Data.Tasks {
		tasks = append(tasks, mapTask(t))
	}
	return tasks, nil
}

func mapTask(t upstreamTask) scrape.Task {
	task := scrape.Task{
		ID:          t.ID,
		Name:        t.Name,
		WikiURL:     t.WikiLink,
		Trader:      scrape.TraderRef{ID: t.Trader.ID, Name: t.Trader.Name},
		Level:       t.MinPlayerLevel,
		Experience:  t.Experience,
		Kappa:       t.KappaRequired,
		Lightkeeper: t.LightkeeperRequired,
	}
	if t.Map != nil {
		task.Location = t.Map.Name
	}
	for _, req := range t.TaskRequirements {
		task.Predecessors = append(task.Predecessors, scrape.TaskRef{
			ID:   req.Task.ID,
			Name: req.Task.Name,
		})
	}
	return task
}

func (c *Client) query(ctx context.Context, query string, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(graphqlRequest{Query: query}).
		SetResult(out).
		Post(c.endpoint)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	return nil
}
