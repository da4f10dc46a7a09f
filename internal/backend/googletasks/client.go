// Package googletasks mirrors the local task collection into a Google Tasks list.
package googletasks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"streaktodo/internal/config"
	"streaktodo/internal/service"
)

const (
	// PageSize is the number of items per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// Scope is the OAuth scope for Google Tasks.
	Scope = "https://www.googleapis.com/auth/tasks"

	statusCompleted   = "completed"
	statusNeedsAction = "needsAction"
)

// Client talks to the Google Tasks API.
type Client struct {
	svc *tasks.Service
}

// PushResult counts what a Push changed remotely.
type PushResult struct {
	Created   int
	Completed int
	Unchanged int
}

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, Scope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}

	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}

	// Token source refreshes automatically.
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &token))

	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{svc: svc}, nil
}

// Push mirrors local into the list titled listTitle, creating the list if
// needed. Local tasks with no remote task of the same title are inserted;
// done local tasks whose remote twin is still open are completed.
func (c *Client) Push(ctx context.Context, listTitle string, local []service.Task) (PushResult, error) {
	var result PushResult

	listID, err := c.ensureList(ctx, listTitle)
	if err != nil {
		return result, err
	}

	remote, err := c.listTasks(ctx, listID)
	if err != nil {
		return result, err
	}

	for _, t := range local {
		key := titleKey(t.Text)
		twin, ok := remote[key]
		switch {
		case !ok:
			created, err := c.insertTask(ctx, listID, t)
			if err != nil {
				return result, err
			}
			remote[key] = created
			result.Created++
		case t.Done && twin.Status == statusNeedsAction:
			if err := c.completeTask(ctx, listID, twin.Id); err != nil {
				return result, err
			}
			twin.Status = statusCompleted
			result.Completed++
		default:
			result.Unchanged++
		}
	}
	return result, nil
}

// ensureList returns the id of the list titled title (case-insensitive,
// trimmed), creating it when absent.
func (c *Client) ensureList(ctx context.Context, title string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	want := titleKey(title)
	var found string
	err := c.svc.Tasklists.List().MaxResults(PageSize).Pages(ctx, func(resp *tasks.TaskLists) error {
		for _, list := range resp.Items {
			if found == "" && titleKey(list.Title) == want {
				found = list.Id
			}
		}
		return nil
	})
	if err != nil {
		return "", wrapError(err)
	}
	if found != "" {
		return found, nil
	}

	list, err := c.svc.Tasklists.Insert(&tasks.TaskList{Title: strings.TrimSpace(title)}).Context(ctx).Do()
	if err != nil {
		return "", wrapError(err)
	}
	return list.Id, nil
}

// listTasks returns the list's tasks keyed by normalized title. The first
// task wins when titles repeat.
func (c *Client) listTasks(ctx context.Context, listID string) (map[string]*tasks.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	byTitle := make(map[string]*tasks.Task)
	err := c.svc.Tasks.List(listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				key := titleKey(t.Title)
				if _, dup := byTitle[key]; !dup {
					byTitle[key] = t
				}
			}
			return nil
		})
	if err != nil {
		return nil, wrapError(err)
	}
	return byTitle, nil
}

func (c *Client) insertTask(ctx context.Context, listID string, t service.Task) (*tasks.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	status := statusNeedsAction
	if t.Done {
		status = statusCompleted
	}
	created, err := c.svc.Tasks.Insert(listID, &tasks.Task{
		Title:  t.Text,
		Notes:  notes(t),
		Status: status,
	}).Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err)
	}
	return created, nil
}

func (c *Client) completeTask(ctx context.Context, listID, taskID string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	_, err := c.svc.Tasks.Patch(listID, taskID, &tasks.Task{
		Status: statusCompleted,
	}).Context(ctx).Do()
	if err != nil {
		return wrapError(err)
	}
	return nil
}

func notes(t service.Task) string {
	return fmt.Sprintf("streak %d, best %d", t.CurrentStreak, t.BestStreak)
}

func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	errStr := err.Error()

	if strings.Contains(errStr, "context deadline exceeded") {
		return fmt.Errorf("request timed out")
	}

	if strings.Contains(errStr, "401") || strings.Contains(errStr, "403") {
		return fmt.Errorf("token expired or revoked (run: streaktodo login)")
	}

	if strings.Contains(errStr, "404") {
		return fmt.Errorf("not found")
	}

	return err
}
