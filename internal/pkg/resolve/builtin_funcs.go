package resolve

import (
	"context"
	"sort"
	"time"

	"github.com/varweave/varweave/internal/pkg/rules"
)

// The resolvers below exist because their computations (averages, account
// age checks, frequency rankings) are not expressible as filter+select.

func init() {
	RegisterScalar("qn.fitbit.average_daily_steps", fitbitAverageDailySteps)
	RegisterScalar("qn.fitbit.account_age_over_year", fitbitAccountAgeOverYear)
	RegisterList("qn.fitbit.top_activities", fitbitTopActivities)

	RegisterScalar("qn.spotify.playlist_count", spotifyPlaylistCount)
	RegisterScalar("qn.spotify.average_track_popularity", spotifyAverageTrackPopularity)
	RegisterList("qn.spotify.top_artists", spotifyTopArtists)

	RegisterScalar("qn.strava.total_distance_30d", stravaTotalDistance30d)
	RegisterList("qn.strava.top_sports", stravaTopSports)
}

func fitbitAverageDailySteps(ctx context.Context, deps Deps) (rules.Value, error) {
	records, err := fetchAll(ctx, deps, "fitbit", "activities", "steps", "date")
	if err != nil {
		return rules.Empty, err
	}
	perDay := map[string]float64{}
	for _, rec := range records {
		date, ok := rec["date"]
		if !ok {
			continue
		}
		perDay[date.Time.Format("2006-01-02")] += rec["steps"].Num
	}
	if len(perDay) == 0 {
		return rules.Empty, nil
	}
	var total float64
	for _, steps := range perDay {
		total += steps
	}
	return rules.Number(total / float64(len(perDay))), nil
}

func fitbitAccountAgeOverYear(ctx context.Context, deps Deps) (rules.Value, error) {
	records, err := fetchAll(ctx, deps, "fitbit", "activities", "date")
	if err != nil {
		return rules.Empty, err
	}
	cutoff := time.Now().AddDate(-1, 0, 0)
	for _, rec := range records {
		if date, ok := rec["date"]; ok && date.Time.Before(cutoff) {
			return rules.Text("true"), nil
		}
	}
	return rules.Text("false"), nil
}

func fitbitTopActivities(ctx context.Context, deps Deps) ([]rules.Value, error) {
	records, err := fetchAll(ctx, deps, "fitbit", "activities", "name")
	if err != nil {
		return nil, err
	}
	return rankByFrequency(records, "name"), nil
}

func spotifyPlaylistCount(ctx context.Context, deps Deps) (rules.Value, error) {
	records, err := fetchAll(ctx, deps, "spotify", "playlists", "name")
	if err != nil {
		return rules.Empty, err
	}
	return rules.Number(float64(len(records))), nil
}

func spotifyAverageTrackPopularity(ctx context.Context, deps Deps) (rules.Value, error) {
	records, err := fetchAll(ctx, deps, "spotify", "top_tracks", "popularity")
	if err != nil {
		return rules.Empty, err
	}
	if len(records) == 0 {
		return rules.Empty, nil
	}
	var total float64
	for _, rec := range records {
		total += rec["popularity"].Num
	}
	return rules.Number(total / float64(len(records))), nil
}

func spotifyTopArtists(ctx context.Context, deps Deps) ([]rules.Value, error) {
	records, err := fetchAll(ctx, deps, "spotify", "top_tracks", "artist")
	if err != nil {
		return nil, err
	}
	return rankByFrequency(records, "artist"), nil
}

func stravaTotalDistance30d(ctx context.Context, deps Deps) (rules.Value, error) {
	records, err := fetchAll(ctx, deps, "strava", "activities", "distance", "date")
	if err != nil {
		return rules.Empty, err
	}
	cutoff := time.Now().AddDate(0, 0, -30)
	var total float64
	for _, rec := range records {
		if date, ok := rec["date"]; ok && date.Time.After(cutoff) {
			total += rec["distance"].Num
		}
	}
	return rules.Number(total), nil
}

func stravaTopSports(ctx context.Context, deps Deps) ([]rules.Value, error) {
	records, err := fetchAll(ctx, deps, "strava", "activities", "type")
	if err != nil {
		return nil, err
	}
	return rankByFrequency(records, "type"), nil
}

// rankByFrequency orders the distinct values of a text attribute by how
// often they occur, most frequent first, ties broken alphabetically so the
// ranking is deterministic.
func rankByFrequency(records []rules.Record, attr string) []rules.Value {
	counts := map[string]int{}
	for _, rec := range records {
		if v, ok := rec[attr]; ok && v.Kind == rules.KindText && v.Text != "" {
			counts[v.Text]++
		}
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	out := make([]rules.Value, len(names))
	for i, name := range names {
		out[i] = rules.Text(name)
	}
	return out
}
