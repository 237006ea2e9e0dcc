package facebook

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/upcrm/forms-transport/core/errorutil"
)

const defaultGraphURL = "https://graph.facebook.com/v19.0"

// Client is a thin Graph API client covering the calls the connector
// lifecycle needs: code exchange, profile and page discovery, webhook
// subscription and lead retrieval.
type Client struct {
	httpClient *http.Client
	graphURL   string
	appID      string
	appSecret  string
}

// NewClient returns a Graph API client. An empty graphURL selects the
// default Graph endpoint.
func NewClient(httpClient *http.Client, graphURL, appID, appSecret string) *Client {
	if graphURL == "" {
		graphURL = defaultGraphURL
	}

	return &Client{
		httpClient: httpClient,
		graphURL:   strings.TrimRight(graphURL, "/"),
		appID:      appID,
		appSecret:  appSecret,
	}
}

// Token is a user or page access token returned by the Graph API.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ExpiresAt converts the relative token lifetime to a wall-clock instant.
// A zero lifetime means the provider did not report one.
func (t Token) ExpiresAt(now time.Time) time.Time {
	if t.ExpiresIn <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// User is the authenticated profile behind a token.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Account is a page the authenticated user manages, with its page token.
type Account struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

// Field is one captured answer of a lead form submission.
type Field struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Lead is a retrieved Lead Ads submission.
type Lead struct {
	ID          string  `json:"id"`
	CreatedTime string  `json:"created_time"`
	FieldData   []Field `json:"field_data"`
}

// FieldMap flattens the captured answers to single values, joining
// multi-value answers with a comma.
func (l Lead) FieldMap() map[string]string {
	result := make(map[string]string, len(l.FieldData))
	for _, field := range l.FieldData {
		result[field.Name] = strings.Join(field.Values, ", ")
	}
	return result
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// ExchangeCode trades an OAuth authorization code for a user token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (Token, error) {
	query := url.Values{
		"client_id":     {c.appID},
		"client_secret": {c.appSecret},
		"code":          {code},
	}

	var token Token
	err := c.get(ctx, "/oauth/access_token", query, &token)
	return token, err
}

// ExchangeCodeWithRedirect trades an OAuth code using the redirect URI it
// was issued for. The Graph API rejects the exchange when the URI differs
// from the one used during authorization.
func (c *Client) ExchangeCodeWithRedirect(ctx context.Context, code, redirectURI string) (Token, error) {
	query := url.Values{
		"client_id":     {c.appID},
		"client_secret": {c.appSecret},
		"redirect_uri":  {redirectURI},
		"code":          {code},
	}

	var token Token
	err := c.get(ctx, "/oauth/access_token", query, &token)
	return token, err
}

// User returns the profile behind the provided user token.
func (c *Client) User(ctx context.Context, accessToken string) (User, error) {
	query := url.Values{
		"fields":       {"id,name"},
		"access_token": {accessToken},
	}

	var user User
	err := c.get(ctx, "/me", query, &user)
	return user, err
}

// Accounts lists the pages the token's user manages, page tokens included.
func (c *Client) Accounts(ctx context.Context, accessToken string) ([]Account, error) {
	query := url.Values{
		"fields":       {"id,name,access_token"},
		"access_token": {accessToken},
	}

	var response struct {
		Data []Account `json:"data"`
	}
	err := c.get(ctx, "/me/accounts", query, &response)
	return response.Data, err
}

// Subscribe registers the app on the page webhook with the leadgen field,
// so the page starts delivering lead events.
func (c *Client) Subscribe(ctx context.Context, pageID, pageToken string) error {
	form := url.Values{
		"subscribed_fields": {"leadgen"},
		"access_token":      {pageToken},
	}

	var response struct {
		Success bool `json:"success"`
	}
	if err := c.post(ctx, "/"+pageID+"/subscribed_apps", form, &response); err != nil {
		return err
	}

	if !response.Success {
		return &errorutil.UpstreamError{Provider: "facebook", Msg: "page subscription was not confirmed"}
	}

	return nil
}

// Lead retrieves a single Lead Ads submission by leadgen id.
func (c *Client) Lead(ctx context.Context, leadgenID, pageToken string) (Lead, error) {
	query := url.Values{
		"fields":       {"id,created_time,field_data"},
		"access_token": {pageToken},
	}

	var lead Lead
	err := c.get(ctx, "/"+leadgenID, query, &lead)
	return lead, err
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.graphURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("cannot build graph request: %w", err)
	}

	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.graphURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("cannot build graph request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("cannot read graph response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return graphErrorFromResponse(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("cannot decode graph response: %w", err)
	}

	return nil
}

func graphErrorFromResponse(status int, body []byte) error {
	var envelope graphError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return &errorutil.UpstreamError{
			Provider: "facebook",
			Msg:      envelope.Error.Message,
			Code:     envelope.Error.Code,
		}
	}

	return &errorutil.UpstreamError{
		Provider: "facebook",
		Msg:      fmt.Sprintf("unexpected response status %d", status),
		Code:     status,
	}
}
