package catalog

import "github.com/varweave/varweave/internal/pkg/rules"

func init() {
	registry = map[string]*Provider{
		"fitbit":   fitbitProvider(),
		"spotify":  spotifyProvider(),
		"strava":   stravaProvider(),
		"frontend": frontendProvider(),
	}
}

func fitbitProvider() *Provider {
	return &Provider{
		Name:         "fitbit",
		Kind:         KindOAuth,
		Scopes:       []string{"activity", "sleep", "profile"},
		RequiresApp:  true,
		CallbackPath: "/oauth/fitbit/callback",
		Categories: []Category{
			{
				Name:        "activities",
				Label:       "Activities",
				Endpoint:    "/1/user/-/activities/list.json",
				RecordsPath: "activities",
				Attributes: []Attribute{
					{Name: "name", Label: "Activity name", Type: rules.TypeText, Origin: "activityName",
						DocURL: "https://dev.fitbit.com/build/reference/web-api/activity/get-activity-log-list/"},
					{Name: "calories", Label: "Calories burned", Type: rules.TypeNumber, Unit: "kcal", Origin: "calories"},
					{Name: "distance", Label: "Distance", Type: rules.TypeNumber, Unit: "km", Origin: "distance"},
					{Name: "duration", Label: "Duration", Type: rules.TypeNumber, Unit: "ms", Origin: "duration"},
					{Name: "steps", Label: "Steps", Type: rules.TypeNumber, Origin: "steps"},
					{Name: "date", Label: "Start time", Type: rules.TypeDate, Origin: "startTime"},
				},
			},
			{
				Name:        "sleep",
				Label:       "Sleep",
				Endpoint:    "/1.2/user/-/sleep/list.json",
				RecordsPath: "sleep",
				Attributes: []Attribute{
					{Name: "date", Label: "Start time", Type: rules.TypeDate, Origin: "startTime",
						DocURL: "https://dev.fitbit.com/build/reference/web-api/sleep/get-sleep-log-list/"},
					{Name: "duration", Label: "Duration", Type: rules.TypeNumber, Unit: "ms", Origin: "duration"},
					{Name: "efficiency", Label: "Efficiency", Type: rules.TypeNumber, Origin: "efficiency"},
					{Name: "minutes_asleep", Label: "Minutes asleep", Type: rules.TypeNumber, Unit: "min", Origin: "minutesAsleep"},
				},
			},
		},
	}
}

func spotifyProvider() *Provider {
	return &Provider{
		Name:         "spotify",
		Kind:         KindOAuth,
		Scopes:       []string{"user-top-read", "user-library-read", "playlist-read-private"},
		RequiresApp:  true,
		CallbackPath: "/oauth/spotify/callback",
		Categories: []Category{
			{
				Name:        "top_tracks",
				Label:       "Top tracks",
				Endpoint:    "/v1/me/top/tracks",
				RecordsPath: "items",
				Attributes: []Attribute{
					{Name: "title", Label: "Track title", Type: rules.TypeText, Origin: "name",
						DocURL: "https://developer.spotify.com/documentation/web-api/reference/get-users-top-artists-and-tracks"},
					{Name: "artist", Label: "Artist", Type: rules.TypeText, Origin: "artists.0.name"},
					{Name: "popularity", Label: "Popularity", Type: rules.TypeNumber, Origin: "popularity"},
					{Name: "duration", Label: "Duration", Type: rules.TypeNumber, Unit: "ms", Origin: "duration_ms"},
				},
			},
			{
				Name:        "saved_tracks",
				Label:       "Saved tracks",
				Endpoint:    "/v1/me/tracks",
				RecordsPath: "items",
				Attributes: []Attribute{
					{Name: "added_at", Label: "Saved on", Type: rules.TypeDate, Origin: "added_at",
						DocURL: "https://developer.spotify.com/documentation/web-api/reference/get-users-saved-tracks"},
					{Name: "title", Label: "Track title", Type: rules.TypeText, Origin: "track.name"},
					{Name: "artist", Label: "Artist", Type: rules.TypeText, Origin: "track.artists.0.name"},
					{Name: "popularity", Label: "Popularity", Type: rules.TypeNumber, Origin: "track.popularity"},
				},
			},
			{
				Name:        "playlists",
				Label:       "Playlists",
				Endpoint:    "/v1/me/playlists",
				RecordsPath: "items",
				Attributes: []Attribute{
					{Name: "name", Label: "Playlist name", Type: rules.TypeText, Origin: "name",
						DocURL: "https://developer.spotify.com/documentation/web-api/reference/get-a-list-of-current-users-playlists"},
					{Name: "tracks", Label: "Track count", Type: rules.TypeNumber, Origin: "tracks.total"},
				},
			},
		},
	}
}

func stravaProvider() *Provider {
	return &Provider{
		Name:         "strava",
		Kind:         KindOAuth,
		Scopes:       []string{"read", "activity:read"},
		RequiresApp:  true,
		CallbackPath: "/oauth/strava/callback",
		Categories: []Category{
			{
				Name:        "activities",
				Label:       "Activities",
				Endpoint:    "/api/v3/athlete/activities",
				RecordsPath: "@this",
				Attributes: []Attribute{
					{Name: "name", Label: "Activity name", Type: rules.TypeText, Origin: "name",
						DocURL: "https://developers.strava.com/docs/reference/#api-Activities-getLoggedInAthleteActivities"},
					{Name: "type", Label: "Sport type", Type: rules.TypeText, Origin: "type"},
					{Name: "distance", Label: "Distance", Type: rules.TypeNumber, Unit: "m", Origin: "distance"},
					{Name: "moving_time", Label: "Moving time", Type: rules.TypeNumber, Unit: "s", Origin: "moving_time"},
					{Name: "elevation", Label: "Elevation gain", Type: rules.TypeNumber, Unit: "m", Origin: "total_elevation_gain"},
					{Name: "date", Label: "Start time", Type: rules.TypeDate, Origin: "start_date"},
				},
			},
		},
	}
}

// frontendProvider carries opaque key/value pairs tracked by the respondent
// client. It has no categories and nothing to fetch.
func frontendProvider() *Provider {
	return &Provider{
		Name: "frontend",
		Kind: KindFrontend,
	}
}
