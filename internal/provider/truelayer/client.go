// Package truelayer is a thin client for the TrueLayer open-banking API:
// the OAuth2 token legs plus the authenticated data endpoints. It maps
// requests and responses only; business meaning belongs to the callers.
package truelayer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// DateFormat is the calendar-date format the provider's transaction
// endpoint expects for the from/to window (inclusive on both ends).
const DateFormat = "2006-01-02"

// Scopes requested on every authorization.
var Scopes = []string{"info", "accounts", "balance", "transactions"}

// Config holds the client credentials and endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthBaseURL  string
	APIBaseURL   string
	Timeout      time.Duration
}

// Client speaks the provider's OAuth2 + REST dialect. Construct one with
// NewClient and pass it explicitly; there is no package-level instance.
type Client struct {
	oauth      *oauth2.Config
	apiBaseURL string
	httpClient *http.Client
}

// NewClient creates a provider client from config.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthBaseURL + "/authorize",
				TokenURL:  cfg.AuthBaseURL + "/connect/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBaseURL: cfg.APIBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// AuthCodeURL returns the provider authorization URL for the given user.
// The user id rides in the state parameter for correlation after redirect.
// Pure; no I/O.
func (c *Client) AuthCodeURL(userID string) string {
	return c.oauth.AuthCodeURL(userID)
}

// ExchangeCode exchanges an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (TokenResult, error) {
	tok, err := c.oauth.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return TokenResult{}, authError(err)
	}
	return tokenResult(tok), nil
}

// RefreshToken exchanges a refresh token for a new token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (TokenResult, error) {
	src := c.oauth.TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return TokenResult{}, authError(err)
	}
	return tokenResult(tok), nil
}

// oauthContext injects the bounded-timeout HTTP client into the context
// the oauth2 package uses for its token requests.
func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func tokenResult(tok *oauth2.Token) TokenResult {
	result := TokenResult{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if consentID, ok := tok.Extra("consent_id").(string); ok {
		result.ConsentID = consentID
	}
	return result
}

func authError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		return &AuthError{
			StatusCode: status,
			Body:       string(retrieveErr.Body),
			Err:        err,
		}
	}
	return &AuthError{Body: err.Error(), Err: err}
}

// FetchInstitutionInfo returns the single institution record for the
// token's consent.
func (c *Client) FetchInstitutionInfo(ctx context.Context, accessToken string) (*InstitutionInfo, error) {
	var results []json.RawMessage
	if err := c.get(ctx, accessToken, "/data/v1/info", nil, &results); err != nil {
		return nil, fmt.Errorf("FetchInstitutionInfo: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("FetchInstitutionInfo: empty results")
	}

	var payload struct {
		Provider struct {
			ProviderID  string `json:"provider_id"`
			DisplayName string `json:"display_name"`
		} `json:"provider"`
	}
	if err := json.Unmarshal(results[0], &payload); err != nil {
		return nil, fmt.Errorf("FetchInstitutionInfo: decoding provider block: %w", err)
	}
	if payload.Provider.ProviderID == "" {
		return nil, fmt.Errorf("FetchInstitutionInfo: info payload missing provider.provider_id")
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(results[0], &raw); err != nil {
		return nil, fmt.Errorf("FetchInstitutionInfo: decoding raw payload: %w", err)
	}

	return &InstitutionInfo{
		ProviderID:  payload.Provider.ProviderID,
		DisplayName: payload.Provider.DisplayName,
		Raw:         raw,
	}, nil
}

// FetchAccounts returns the provider's account list for the token.
func (c *Client) FetchAccounts(ctx context.Context, accessToken string) ([]Account, error) {
	var accounts []Account
	if err := c.get(ctx, accessToken, "/data/v1/accounts", nil, &accounts); err != nil {
		return nil, fmt.Errorf("FetchAccounts: %w", err)
	}
	for i := range accounts {
		if err := accounts[i].validate(); err != nil {
			return nil, fmt.Errorf("FetchAccounts: record %d: %w", i, err)
		}
	}
	return accounts, nil
}

// FetchBalance returns the current balance of one provider account.
func (c *Client) FetchBalance(ctx context.Context, accessToken, accountID string) (*Balance, error) {
	var balances []Balance
	path := fmt.Sprintf("/data/v1/accounts/%s/balance", url.PathEscape(accountID))
	if err := c.get(ctx, accessToken, path, nil, &balances); err != nil {
		return nil, fmt.Errorf("FetchBalance: %w", err)
	}
	if len(balances) == 0 {
		return nil, fmt.Errorf("FetchBalance: empty results for account %s", accountID)
	}
	return &balances[0], nil
}

// FetchTransactions returns the provider transactions for one account over
// the [from, to] calendar-date window, inclusive on both ends.
func (c *Client) FetchTransactions(ctx context.Context, accessToken, accountID string, from, to time.Time) ([]Transaction, error) {
	params := url.Values{
		"from": {from.Format(DateFormat)},
		"to":   {to.Format(DateFormat)},
	}
	var transactions []Transaction
	path := fmt.Sprintf("/data/v1/accounts/%s/transactions", url.PathEscape(accountID))
	if err := c.get(ctx, accessToken, path, params, &transactions); err != nil {
		return nil, fmt.Errorf("FetchTransactions: %w", err)
	}
	for i := range transactions {
		if err := transactions[i].validate(); err != nil {
			return nil, fmt.Errorf("FetchTransactions: record %d: %w", i, err)
		}
	}
	return transactions, nil
}

// get performs an authenticated GET against the data API and decodes the
// "results" envelope into out. Non-2xx responses become a DataError.
func (c *Client) get(ctx context.Context, accessToken, path string, params url.Values, out interface{}) error {
	u := c.apiBaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DataError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var envelope struct {
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decoding envelope: %w", err)
	}
	if err := json.Unmarshal(envelope.Results, out); err != nil {
		return fmt.Errorf("decoding results: %w", err)
	}
	return nil
}
