package adapters

import (
	"net/http"
	"testing"

	"github.com/Melaeke/omim/internal/features/banners/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNetworkClients(t *testing.T) {
	clients := NewNetworkClients(map[domain.BannerType]string{
		domain.BannerTypeGoogle: "https://exchange.example.com/openrtb",
		domain.BannerTypeMopub:  "https://mopub.example.com/ads",
		domain.BannerTypeRB:     "",
	}, "com.example", http.DefaultClient)

	require.Len(t, clients, 2)
	assert.IsType(t, &HTTPNetworkClient{}, clients[0])
	assert.IsType(t, &OpenRTBNetworkClient{}, clients[1])

	assert.Same(t, clients[1], ClientFor(clients, domain.BannerTypeGoogle))
	assert.Same(t, clients[0], ClientFor(clients, domain.BannerTypeMopub))
	assert.Nil(t, ClientFor(clients, domain.BannerTypeRB))
}
