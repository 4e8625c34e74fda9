package service

import (
	"math"
	"sort"

	"github.com/Melaeke/omim/internal/features/banners/domain"
	"github.com/Melaeke/omim/internal/features/banners/ports"
)

// ucbScore is the upper confidence bound of a banner. Banners never shown score +Inf.
func ucbScore(stat domain.BannerStat, totalShows int) float64 {
	if stat.Shows == 0 {
		return math.Inf(1)
	}

	ctr := float64(stat.Clicks) / float64(stat.Shows)
	exploration := math.Sqrt(2 * math.Log(float64(totalShows)) / float64(stat.Shows))

	return ctr + exploration
}

// rankByUCB orders banners by descending score, keeping configuration order on ties.
func rankByUCB(banners []ports.LoadedBanner, stats []domain.BannerStat) []ports.LoadedBanner {
	byType := make(map[domain.BannerType]domain.BannerStat, len(stats))
	totalShows := 0
	for _, st := range stats {
		byType[st.BannerType] = st
	}
	for _, b := range banners {
		totalShows += byType[b.Type()].Shows
	}

	scores := make(map[domain.BannerType]float64, len(banners))
	for _, b := range banners {
		scores[b.Type()] = ucbScore(byType[b.Type()], totalShows)
	}

	ranked := make([]ports.LoadedBanner, len(banners))
	copy(ranked, banners)
	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i].Type()] > scores[ranked[j].Type()]
	})

	return ranked
}
