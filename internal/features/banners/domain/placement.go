package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidPlacement = errors.New("invalid placement definition")

// Placement is an ad slot in the client UI served by one or more networks.
type Placement struct {
	ID          string       `json:"id"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	BannerTypes []BannerType `json:"banner_types"`
}

// ParsePlacements reads the ADS_PLACEMENTS format:
//
//	placepage@320x50:mopub,facebook;search@320x50:google
//
// The size part is optional and defaults to 320x50.
func ParsePlacements(s string) ([]Placement, error) {
	var placements []Placement
	seen := make(map[string]bool)

	for _, def := range strings.Split(s, ";") {
		def = strings.TrimSpace(def)
		if def == "" {
			continue
		}

		head, types, ok := strings.Cut(def, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q has no networks", ErrInvalidPlacement, def)
		}

		p := Placement{Width: 320, Height: 50}
		id, size, hasSize := strings.Cut(head, "@")
		p.ID = strings.TrimSpace(id)
		if p.ID == "" {
			return nil, fmt.Errorf("%w: %q has no id", ErrInvalidPlacement, def)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("%w: duplicate placement %q", ErrInvalidPlacement, p.ID)
		}
		seen[p.ID] = true

		if hasSize {
			w, h, err := parseSize(size)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPlacement, def, err)
			}
			p.Width, p.Height = w, h
		}

		for _, raw := range strings.Split(types, ",") {
			bt, err := ParseBannerType(raw)
			if err != nil {
				return nil, fmt.Errorf("placement %q: %w", p.ID, err)
			}
			p.BannerTypes = append(p.BannerTypes, bt)
		}

		placements = append(placements, p)
	}

	return placements, nil
}

func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.TrimSpace(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q is not WxH", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("bad width %q", ws)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("bad height %q", hs)
	}
	return w, h, nil
}
