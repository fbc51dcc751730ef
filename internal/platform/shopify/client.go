package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/funnelform/funnelform-backend/internal/logger"
	"github.com/funnelform/funnelform-backend/internal/utils"
)

// Client publishes quiz landing pages through the Shopify Admin GraphQL API.
type Client interface {
	CreatePage(ctx context.Context, title, body string) (*Page, error)
	UpdatePage(ctx context.Context, pageID, title, body string) (*Page, error)
	DeletePage(ctx context.Context, pageID string) error
}

type Page struct {
	ID     string
	Handle string
}

type Config struct {
	ShopDomain  string
	AccessToken string
	APIVersion  string
	Timeout     time.Duration
	MaxRetries  int
}

func ConfigFromEnv(log *logger.Logger) Config {
	timeoutSec := utils.GetEnvAsInt("SHOPIFY_TIMEOUT_SECONDS", 30, log)
	maxRetries := utils.GetEnvAsInt("SHOPIFY_MAX_RETRIES", 4, log)
	return Config{
		ShopDomain:  strings.TrimSpace(utils.GetEnv("SHOPIFY_SHOP_DOMAIN", "", log)),
		AccessToken: strings.TrimSpace(utils.GetEnv("SHOPIFY_ADMIN_TOKEN", "", log)),
		APIVersion:  strings.TrimSpace(utils.GetEnv("SHOPIFY_API_VERSION", "2024-07", log)),
		Timeout:     time.Duration(timeoutSec) * time.Second,
		MaxRetries:  maxRetries,
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv(log))
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.ShopDomain == "" || cfg.AccessToken == "" {
		return nil, fmt.Errorf("missing SHOPIFY_SHOP_DOMAIN/SHOPIFY_ADMIN_TOKEN")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-07"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 4
	}
	return &client{
		log:        log.With("client", "ShopifyClient"),
		cfg:        cfg,
		endpoint:   fmt.Sprintf("https://%s/admin/api/%s/graphql.json", cfg.ShopDomain, cfg.APIVersion),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	endpoint   string
	httpClient *http.Client
}

const pageCreateMutation = `
mutation pageCreate($page: PageCreateInput!) {
  pageCreate(page: $page) {
    page { id handle }
    userErrors { field message }
  }
}`

const pageUpdateMutation = `
mutation pageUpdate($id: ID!, $page: PageUpdateInput!) {
  pageUpdate(id: $id, page: $page) {
    page { id handle }
    userErrors { field message }
  }
}`

const pageDeleteMutation = `
mutation pageDelete($id: ID!) {
  pageDelete(id: $id) {
    deletedPageId
    userErrors { field message }
  }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type pagePayload struct {
	Page *struct {
		ID     string `json:"id"`
		Handle string `json:"handle"`
	} `json:"page"`
	DeletedPageID string      `json:"deletedPageId"`
	UserErrors    []userError `json:"userErrors"`
}

type graphqlResponse struct {
	Data map[string]pagePayload `json:"data"`
	Errs []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *client) CreatePage(ctx context.Context, title, body string) (*Page, error) {
	payload, err := c.mutate(ctx, "pageCreate", graphqlRequest{
		Query: pageCreateMutation,
		Variables: map[string]any{
			"page": map[string]any{"title": title, "body": body, "isPublished": true},
		},
	})
	if err != nil {
		return nil, err
	}
	if payload.Page == nil {
		return nil, fmt.Errorf("shopify: pageCreate returned no page")
	}
	return &Page{ID: payload.Page.ID, Handle: payload.Page.Handle}, nil
}

func (c *client) UpdatePage(ctx context.Context, pageID, title, body string) (*Page, error) {
	payload, err := c.mutate(ctx, "pageUpdate", graphqlRequest{
		Query: pageUpdateMutation,
		Variables: map[string]any{
			"id":   pageID,
			"page": map[string]any{"title": title, "body": body},
		},
	})
	if err != nil {
		return nil, err
	}
	if payload.Page == nil {
		return nil, fmt.Errorf("shopify: pageUpdate returned no page")
	}
	return &Page{ID: payload.Page.ID, Handle: payload.Page.Handle}, nil
}

func (c *client) DeletePage(ctx context.Context, pageID string) error {
	_, err := c.mutate(ctx, "pageDelete", graphqlRequest{
		Query:     pageDeleteMutation,
		Variables: map[string]any{"id": pageID},
	})
	return err
}

func (c *client) mutate(ctx context.Context, field string, req graphqlRequest) (*pagePayload, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("shopify: marshal request: %w", err)
	}
	endpoint := c.endpoint

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 250 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("X-Shopify-Access-Token", c.cfg.AccessToken)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = err
			continue
		}
		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("shopify: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
			c.log.Warn("Shopify request retryable failure", "status", resp.StatusCode, "attempt", attempt)
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("shopify: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}

		var parsed graphqlResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, fmt.Errorf("shopify: decode response: %w", err)
		}
		if len(parsed.Errs) > 0 {
			return nil, fmt.Errorf("shopify: graphql error: %s", parsed.Errs[0].Message)
		}
		payload, ok := parsed.Data[field]
		if !ok {
			return nil, fmt.Errorf("shopify: response missing %s payload", field)
		}
		if len(payload.UserErrors) > 0 {
			return nil, fmt.Errorf("shopify: %s: %s", field, payload.UserErrors[0].Message)
		}
		return &payload, nil
	}
	return nil, fmt.Errorf("shopify: retries exhausted: %w", lastErr)
}
