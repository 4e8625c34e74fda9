package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBannerType(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    BannerType
		expectedErr error
	}{
		{name: "Facebook", input: "facebook", expected: BannerTypeFacebook},
		{name: "RB", input: "rb", expected: BannerTypeRB},
		{name: "Mopub mixed case", input: " MoPub ", expected: BannerTypeMopub},
		{name: "Google", input: "google", expected: BannerTypeGoogle},
		{name: "None is not servable", input: "none", expected: BannerTypeNone, expectedErr: ErrInvalidBannerType},
		{name: "Unknown", input: "yandex", expected: BannerTypeNone, expectedErr: ErrInvalidBannerType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bt, err := ParseBannerType(tt.input)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, bt)
		})
	}
}

func TestParsePlacements(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		placements, err := ParsePlacements("placepage@300x250:mopub,facebook; search:google")
		require.NoError(t, err)
		require.Len(t, placements, 2)

		assert.Equal(t, "placepage", placements[0].ID)
		assert.Equal(t, 300, placements[0].Width)
		assert.Equal(t, 250, placements[0].Height)
		assert.Equal(t, []BannerType{BannerTypeMopub, BannerTypeFacebook}, placements[0].BannerTypes)

		assert.Equal(t, "search", placements[1].ID)
		assert.Equal(t, 320, placements[1].Width)
		assert.Equal(t, 50, placements[1].Height)
	})

	t.Run("Empty", func(t *testing.T) {
		placements, err := ParsePlacements("")
		require.NoError(t, err)
		assert.Empty(t, placements)
	})

	t.Run("Errors", func(t *testing.T) {
		for _, input := range []string{
			"placepage",
			":mopub",
			"a:mopub;a:rb",
			"a@320:mopub",
			"a@0x50:mopub",
		} {
			_, err := ParsePlacements(input)
			assert.ErrorIs(t, err, ErrInvalidPlacement, input)
		}

		_, err := ParsePlacements("a:unknown")
		assert.ErrorIs(t, err, ErrInvalidBannerType)
	})
}

func TestErrorDetails_Fill(t *testing.T) {
	t.Run("NetworkError", func(t *testing.T) {
		err := &NetworkError{BannerType: BannerTypeMopub, Code: "E42", HTTPStatus: 502, Err: errors.New("bad gateway")}
		details := ErrorDetails{"banner": BannerTypeMopub}.Fill(err)

		assert.Equal(t, "E42", details["error_code"])
		assert.Equal(t, 502, details["http_status"])
		assert.Contains(t, details["error_message"], "bad gateway")
		assert.Equal(t, BannerTypeMopub, details["banner"])
	})

	t.Run("PlainError", func(t *testing.T) {
		details := ErrorDetails{}.Fill(ErrNoFill)
		assert.Equal(t, ErrNoFill.Error(), details["error_message"])
		assert.NotContains(t, details, "http_status")
	})

	t.Run("Nil", func(t *testing.T) {
		details := ErrorDetails{}.Fill(nil)
		assert.Empty(t, details)
	})
}

func TestNetworkError_Unwrap(t *testing.T) {
	err := &NetworkError{BannerType: BannerTypeRB, Err: ErrNoFill}
	assert.ErrorIs(t, err, ErrNoFill)
	assert.Contains(t, err.Error(), "rb network error")
}
