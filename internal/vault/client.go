package vault

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dmizin/computer-inventory/internal/app"
)

const component = "vault.client"

var (
	ErrTLSConfig = errors.New("error in vault TLS configuration")
)

// Client is a thin authenticated HTTP client for the secrets vault Connect API.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type Client struct {
	endpoint string
	token    string
	insecure bool

	client *retryablehttp.Client
	logger *logrus.Entry
}

// NewClient returns a vault Connect client configured per the given options.
func NewClient(cfg *app.VaultOptions, logger *logrus.Logger) (*Client, error) {
	tlsConfig, err := tlsConfigForMode(cfg)
	if err != nil {
		return nil, err
	}

	// init retryable http client
	retryableClient := retryablehttp.NewClient()
	retryableClient.HTTPClient = &http.Client{
		Timeout: cfg.ConnectTimeout,
		Transport: &http.Transport{
			TLSClientConfig: tlsConfig,
		},
	}

	// disable default debug logging on the retryable client
	if logger.Level < logrus.DebugLevel {
		retryableClient.Logger = nil
	} else {
		retryableClient.Logger = logger
	}

	return &Client{
		endpoint: strings.TrimSuffix(cfg.Host, "/") + "/v1",
		token:    cfg.Token,
		insecure: cfg.TLSMode == app.TLSModeInsecure,
		client:   retryableClient,
		logger:   logger.WithField("component", component),
	}, nil
}

func tlsConfigForMode(cfg *app.VaultOptions) (*tls.Config, error) {
	switch cfg.TLSMode {
	case "", app.TLSModeVerify:
		return &tls.Config{MinVersion: tls.VersionTLS12}, nil
	case app.TLSModeCustomCA:
		pem, err := os.ReadFile(cfg.CACertFile)
		if err != nil {
			return nil, errors.Wrap(ErrTLSConfig, err.Error())
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.Wrap(ErrTLSConfig, "no certificates parsed from "+cfg.CACertFile)
		}

		return &tls.Config{MinVersion: tls.VersionTLS12, RootCAs: pool}, nil
	case app.TLSModeInsecure:
		// nolint:gosec // insecure mode is an explicit operator choice, warned on every request.
		return &tls.Config{InsecureSkipVerify: true}, nil
	default:
		return nil, errors.Wrap(ErrTLSConfig, "unknown tls_mode: "+cfg.TLSMode)
	}
}

// Heartbeat probes the Connect server health endpoint.
func (c *Client) Heartbeat(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/heartbeat", nil, nil, nil, "heartbeat", http.StatusOK)
}

// VaultIDByName resolves the id of the vault with the given name.
func (c *Client) VaultIDByName(ctx context.Context, name string) (string, error) {
	vaults := []Vault{}
	if err := c.do(ctx, http.MethodGet, "/vaults", nil, nil, &vaults, "list vaults", http.StatusOK); err != nil {
		return "", err
	}

	for _, v := range vaults {
		if v.Name == name {
			return v.ID, nil
		}
	}

	return "", &Error{Op: "list vaults", StatusCode: http.StatusNotFound, Message: fmt.Sprintf("vault %q not found", name)}
}

// FindItemByTitle returns the first item with an exact title match within the
// vault, nil when no item matches.
func (c *Client) FindItemByTitle(ctx context.Context, vaultID, title string) (*Item, error) {
	query := url.Values{}
	query.Set("filter", fmt.Sprintf("title eq %q", title))

	items := []Item{}
	err := c.do(ctx, http.MethodGet, "/vaults/"+vaultID+"/items", query, nil, &items, "find item", http.StatusOK)
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, nil
	}

	return &items[0], nil
}

// CreateItem creates a new item in the vault.
func (c *Client) CreateItem(ctx context.Context, vaultID string, item *Item) (*Item, error) {
	created := &Item{}

	err := c.do(ctx, http.MethodPost, "/vaults/"+vaultID+"/items", nil, item, created,
		"create item", http.StatusOK, http.StatusCreated)
	if err != nil {
		return nil, err
	}

	return created, nil
}

// ReplaceItem replaces the item identified by itemID.
func (c *Client) ReplaceItem(ctx context.Context, vaultID, itemID string, item *Item) (*Item, error) {
	replaced := &Item{}

	err := c.do(ctx, http.MethodPut, "/vaults/"+vaultID+"/items/"+itemID, nil, item, replaced,
		"replace item", http.StatusOK, http.StatusCreated)
	if err != nil {
		return nil, err
	}

	return replaced, nil
}

// ItemByID fetches a single item.
func (c *Client) ItemByID(ctx context.Context, vaultID, itemID string) (*Item, error) {
	item := &Item{}

	err := c.do(ctx, http.MethodGet, "/vaults/"+vaultID+"/items/"+itemID, nil, nil, item,
		"get item", http.StatusOK)
	if err != nil {
		return nil, err
	}

	return item, nil
}

// DeleteItem removes an item from the vault.
func (c *Client) DeleteItem(ctx context.Context, vaultID, itemID string) error {
	return c.do(ctx, http.MethodDelete, "/vaults/"+vaultID+"/items/"+itemID, nil, nil, nil,
		"delete item", http.StatusNoContent, http.StatusOK)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out interface{}, op string, okStatuses ...int) error {
	if c.insecure {
		c.logger.Warn("vault TLS certificate verification is DISABLED, connections are not authenticated")
	}

	endpoint := c.endpoint + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader

	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return &Error{Op: op, Message: "request encode error: " + err.Error()}
		}

		body = bytes.NewReader(b)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &Error{Op: op, Message: "request error: " + err.Error()}
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// timeouts and connection failures surface as a vault Error,
		// never as a raw transport error.
		return &Error{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	for _, status := range okStatuses {
		if resp.StatusCode == status {
			if out == nil {
				return nil
			}

			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return &Error{Op: op, StatusCode: resp.StatusCode, Message: "response decode error: " + err.Error()}
			}

			return nil
		}
	}

	diag, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	return &Error{Op: op, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(diag))}
}
