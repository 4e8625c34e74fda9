package adapters

import (
	"net/http"

	"github.com/Melaeke/omim/internal/features/banners/domain"
	"github.com/Melaeke/omim/internal/features/banners/ports"
)

// NewNetworkClients builds a client for every network with a configured endpoint.
// Exchanges (facebook, google) speak OpenRTB, mediation networks (rb, mopub) plain JSON.
func NewNetworkClients(endpoints map[domain.BannerType]string, appBundle string, client *http.Client) []ports.NetworkClient {
	var clients []ports.NetworkClient
	for _, bannerType := range []domain.BannerType{
		domain.BannerTypeFacebook,
		domain.BannerTypeRB,
		domain.BannerTypeMopub,
		domain.BannerTypeGoogle,
	} {
		endpoint := endpoints[bannerType]
		if endpoint == "" {
			continue
		}

		switch bannerType {
		case domain.BannerTypeFacebook, domain.BannerTypeGoogle:
			clients = append(clients, NewOpenRTBNetworkClient(bannerType, endpoint, appBundle, client))
		default:
			clients = append(clients, NewHTTPNetworkClient(bannerType, endpoint, client))
		}
	}
	return clients
}

// ClientFor returns the first client serving bannerType, or nil.
func ClientFor(clients []ports.NetworkClient, bannerType domain.BannerType) ports.NetworkClient {
	for _, c := range clients {
		if c.SupportsBannerType(bannerType) {
			return c
		}
	}
	return nil
}
