package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Melaeke/omim/internal/features/banners/domain"

	"github.com/prebid/openrtb/v20/openrtb2"
)

const (
	defaultCurrency = "USD"
	// firstPriceAuction is the OpenRTB auction type 1.
	firstPriceAuction = 1
)

// OpenRTBNetworkClient fetches creatives from an OpenRTB 2.x exchange.
type OpenRTBNetworkClient struct {
	bannerType domain.BannerType
	endpoint   string
	appBundle  string
	client     *http.Client
}

// NewOpenRTBNetworkClient creates a client posting bid requests for bannerType to endpoint.
func NewOpenRTBNetworkClient(bannerType domain.BannerType, endpoint, appBundle string, client *http.Client) *OpenRTBNetworkClient {
	return &OpenRTBNetworkClient{
		bannerType: bannerType,
		endpoint:   endpoint,
		appBundle:  appBundle,
		client:     client,
	}
}

func (c *OpenRTBNetworkClient) buildBidRequest(ctx context.Context, req domain.AdRequest) *openrtb2.BidRequest {
	bidReq := &openrtb2.BidRequest{
		ID: req.ReloadID,
		Imp: []openrtb2.Imp{
			{
				ID:          "1",
				TagID:       req.PlacementID,
				BidFloor:    req.BidFloor,
				BidFloorCur: defaultCurrency,
				Banner: &openrtb2.Banner{
					Format: []openrtb2.Format{
						{W: int64(req.Width), H: int64(req.Height)},
					},
				},
			},
		},
		App: &openrtb2.App{
			Bundle: c.appBundle,
		},
		AT:  firstPriceAuction,
		Cur: []string{defaultCurrency},
	}
	if deadline, ok := ctx.Deadline(); ok {
		if tmax := time.Until(deadline).Milliseconds(); tmax > 0 {
			bidReq.TMax = tmax
		}
	}
	return bidReq
}

// FetchCreative runs a single-impression auction and returns the winning bid.
func (c *OpenRTBNetworkClient) FetchCreative(ctx context.Context, req domain.AdRequest) (*domain.Creative, error) {
	body, err := json.Marshal(c.buildBidRequest(ctx, req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bid request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Openrtb-Version", "2.6")

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
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.NetworkError{
			BannerType: c.bannerType,
			HTTPStatus: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.NetworkError{BannerType: c.bannerType, HTTPStatus: resp.StatusCode, Err: err}
	}

	var bidResp openrtb2.BidResponse
	if err := json.Unmarshal(data, &bidResp); err != nil {
		return nil, &domain.NetworkError{
			BannerType: c.bannerType,
			HTTPStatus: resp.StatusCode,
			Err:        fmt.Errorf("failed to parse bid response: %w", err),
		}
	}
	if bidResp.NBR != nil {
		return nil, fmt.Errorf("%w: no-bid reason %d", domain.ErrNoFill, *bidResp.NBR)
	}

	bid := highestBid(&bidResp, req.BidFloor)
	if bid == nil {
		return nil, domain.ErrNoFill
	}

	width, height := int(bid.W), int(bid.H)
	if width == 0 || height == 0 {
		width, height = req.Width, req.Height
	}

	return &domain.Creative{
		ID:           bid.ID,
		Markup:       bid.AdM,
		WinNoticeURL: bid.NURL,
		Width:        width,
		Height:       height,
		Price:        bid.Price,
	}, nil
}

// highestBid returns the best priced bid with markup at or above floor.
func highestBid(resp *openrtb2.BidResponse, floor float64) *openrtb2.Bid {
	var best *openrtb2.Bid
	for i := range resp.SeatBid {
		for j := range resp.SeatBid[i].Bid {
			bid := &resp.SeatBid[i].Bid[j]
			if bid.AdM == "" || bid.Price < floor {
				continue
			}
			if best == nil || bid.Price > best.Price {
				best = bid
			}
		}
	}
	return best
}

// SupportsBannerType returns true for the network this client was built for.
func (c *OpenRTBNetworkClient) SupportsBannerType(bannerType domain.BannerType) bool {
	return bannerType == c.bannerType
}
