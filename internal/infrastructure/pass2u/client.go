// Package pass2u is a client for the Pass2U v2 pass API.
package pass2u

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/virtual-id-api/internal/domain"
)

// maxErrorBody bounds how much of an error response is kept for diagnostics.
const maxErrorBody = 4 << 10

// maxPassFile bounds a downloaded .pkpass archive.
const maxPassFile = 20 << 20

// Config holds the vendor endpoints and credentials.
type Config struct {
	BaseURL         string // e.g. https://api.pass2u.net/v2
	DistributionURL string // e.g. https://www.pass2u.net/d
	APIKey          string
	ModelID         string
}

// Client talks to Pass2U. Per-call deadlines come from the caller's context.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// StatusError is returned for any non-2xx vendor response.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pass2u %s: status %d: %s", e.Op, e.Status, e.Body)
}

type imageResponse struct {
	Hex string `json:"hex"`
}

type passResponse struct {
	PassID string `json:"passId"`
}

type fieldPayload struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Label string `json:"label"`
}

type imagePayload struct {
	Type string `json:"type"`
	Hex  string `json:"hex"`
}

type barcodePayload struct {
	Message         string `json:"message"`
	Format          string `json:"format"`
	MessageEncoding string `json:"messageEncoding"`
	AltText         string `json:"altText"`
}

type passPayload struct {
	Description       string         `json:"description"`
	OrganizationName  string         `json:"organizationName"`
	BackgroundColor   string         `json:"backgroundColor"`
	ForegroundColor   string         `json:"foregroundColor"`
	LabelColor        string         `json:"labelColor"`
	Fields            []fieldPayload `json:"fields"`
	Images            []imagePayload `json:"images"`
	Barcode           barcodePayload `json:"barcode"`
	SharingProhibited bool           `json:"sharingProhibited"`
	Voided            bool           `json:"voided"`
	ExpirationDate    string         `json:"expirationDate"`
}

// UploadImage posts a PNG and returns the vendor image hex.
func (c *Client) UploadImage(ctx context.Context, image []byte) (domain.PassImageHandle, error) {
	resp, err := c.do(ctx, http.MethodPost, "/images", bytes.NewReader(image), "image/png")
	if err != nil {
		return "", err
	}
	var out imageResponse
	if err := decodeJSON(resp, "upload image", &out); err != nil {
		return "", err
	}
	if out.Hex == "" {
		return "", fmt.Errorf("pass2u upload image: empty hex in response")
	}
	return domain.PassImageHandle(out.Hex), nil
}

// CreatePass creates a pass from the configured model and returns its
// distribution links. Pass2U serves one link for both wallets.
func (c *Client) CreatePass(ctx context.Context, req *domain.PassRequest) (*domain.PassRecord, error) {
	body, err := json.Marshal(toPayload(req))
	if err != nil {
		return nil, fmt.Errorf("marshal pass: %w", err)
	}
	path := "/models/" + url.PathEscape(c.cfg.ModelID) + "/passes"
	resp, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	var out passResponse
	if err := decodeJSON(resp, "create pass", &out); err != nil {
		return nil, err
	}
	if out.PassID == "" {
		return nil, fmt.Errorf("pass2u create pass: empty passId in response")
	}
	link := c.cfg.DistributionURL + "/" + url.PathEscape(out.PassID)
	return &domain.PassRecord{PassID: out.PassID, AppleWalletURL: link, GoogleWalletURL: link}, nil
}

// DownloadPass fetches the .pkpass file. A 404 wraps domain.ErrNotFound.
func (c *Client) DownloadPass(ctx context.Context, passID string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/passes/"+url.PathEscape(passID)+"/file", nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("pass %s: %w", passID, domain.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError("download pass", resp)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPassFile+1))
	if err != nil {
		return nil, fmt.Errorf("read pass file: %w", err)
	}
	if len(data) > maxPassFile {
		return nil, fmt.Errorf("pass file exceeds %d bytes", maxPassFile)
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

func decodeJSON(resp *http.Response, op string, target any) error {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("pass2u %s: decode response: %w", op, err)
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Op: op, Status: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
}

func toPayload(req *domain.PassRequest) passPayload {
	fields := make([]fieldPayload, 0, len(req.Fields))
	for _, f := range req.Fields {
		fields = append(fields, fieldPayload{Key: f.Key, Value: f.Value, Label: f.Label})
	}
	hex := string(req.Image)
	return passPayload{
		Description:      req.Description,
		OrganizationName: req.OrganizationName,
		BackgroundColor:  req.BackgroundColor,
		ForegroundColor:  req.ForegroundColor,
		LabelColor:       req.LabelColor,
		Fields:           fields,
		Images: []imagePayload{
			{Type: "icon", Hex: hex},
			{Type: "logo", Hex: hex},
			{Type: "strip", Hex: hex},
		},
		Barcode: barcodePayload{
			Message:         req.Barcode.Message,
			Format:          req.Barcode.Format,
			MessageEncoding: req.Barcode.Encoding,
			AltText:         req.Barcode.AltText,
		},
		SharingProhibited: req.SharingProhibited,
		ExpirationDate:    req.ExpiresAt.UTC().Format(time.RFC3339),
	}
}
