/*

This file contains the function for ranking candidate pools by their overall
score, adapted from the top-pool selection used for rebalancing targets.

*/

package scoring

import (
	"sort"

	"github.com/meridian-fi/alm/internal/logger"
	"github.com/meridian-fi/alm/internal/types"
)

var rankLogger = logger.GetForComponent("pool_ranker")

// RankedPool pairs a snapshot with its computed score set.
type RankedPool struct {
	Snapshot types.PoolSnapshot
	Scores   types.ScoreSet
}

// RankPools scores every snapshot and returns them ordered by overall score,
// highest first. The sort is stable: pools with equal overall scores keep
// their original snapshot order.
func RankPools(snaps []types.PoolSnapshot, params types.Parameters) []RankedPool {
	ranked := make([]RankedPool, 0, len(snaps))
	for _, snap := range snaps {
		ranked = append(ranked, RankedPool{
			Snapshot: snap,
			Scores:   CalculateScoreSet(snap, params),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Scores.Overall > ranked[j].Scores.Overall
	})

	if len(ranked) > 0 {
		rankLogger.Debug().
			Int("pools", len(ranked)).
			Str("topPool", string(ranked[0].Snapshot.Address)).
			Int("topScore", ranked[0].Scores.Overall).
			Msg("Pools ranked")
	}

	return ranked
}
