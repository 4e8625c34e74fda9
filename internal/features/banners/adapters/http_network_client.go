package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Melaeke/omim/internal/features/banners/domain"
)

// HTTPNetworkClient fetches creatives from a mediation endpoint over plain JSON.
type HTTPNetworkClient struct {
	bannerType domain.BannerType
	baseURL    string
	client     *http.Client
}

// NewHTTPNetworkClient creates a client serving bannerType from baseURL.
func NewHTTPNetworkClient(bannerType domain.BannerType, baseURL string, client *http.Client) *HTTPNetworkClient {
	return &HTTPNetworkClient{
		bannerType: bannerType,
		baseURL:    baseURL,
		client:     client,
	}
}

// mediationResponse represents the JSON structure returned by the endpoint.
type mediationResponse struct {
	ID       string `json:"id"`
	Markup   string `json:"markup"`
	ClickURL string `json:"click_url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Error    *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FetchCreative asks the endpoint for one creative.
func (c *HTTPNetworkClient) FetchCreative(ctx context.Context, req domain.AdRequest) (*domain.Creative, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid %s endpoint: %w", c.bannerType, err)
	}
	q := u.Query()
	q.Set("placement", req.PlacementID)
	q.Set("width", strconv.Itoa(req.Width))
	q.Set("height", strconv.Itoa(req.Height))
	q.Set("reload_id", req.ReloadID)
	q.Set("banner", string(c.bannerType))
	if req.BidFloor > 0 {
		q.Set("floor", strconv.FormatFloat(req.BidFloor, 'f', -1, 64))
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &domain.NetworkError{BannerType: c.bannerType, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, domain.ErrNoFill
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.NetworkError{BannerType: c.bannerType, HTTPStatus: resp.StatusCode, Err: err}
	}

	var payload mediationResponse
	decodeErr := json.Unmarshal(body, &payload)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		netErr := &domain.NetworkError{
			BannerType: c.bannerType,
			HTTPStatus: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
		if decodeErr == nil && payload.Error != nil {
			netErr.Code = payload.Error.Code
			netErr.Err = errors.New(payload.Error.Message)
		}
		return nil, netErr
	}

	if decodeErr != nil {
		return nil, &domain.NetworkError{
			BannerType: c.bannerType,
			HTTPStatus: resp.StatusCode,
			Err:        fmt.Errorf("failed to parse %s response: %w", c.bannerType, decodeErr),
		}
	}
	if payload.Error != nil {
		return nil, &domain.NetworkError{
			BannerType: c.bannerType,
			Code:       payload.Error.Code,
			HTTPStatus: resp.StatusCode,
			Err:        errors.New(payload.Error.Message),
		}
	}
	if payload.Markup == "" {
		return nil, domain.ErrNoFill
	}

	width, height := payload.Width, payload.Height
	if width == 0 || height == 0 {
		width, height = req.Width, req.Height
	}

	return &domain.Creative{
		ID:       payload.ID,
		Markup:   payload.Markup,
		ClickURL: payload.ClickURL,
		Width:    width,
		Height:   height,
	}, nil
}

// SupportsBannerType returns true for the network this client was built for.
func (c *HTTPNetworkClient) SupportsBannerType(bannerType domain.BannerType) bool {
	return bannerType == c.bannerType
}
