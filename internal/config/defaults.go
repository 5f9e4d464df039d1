package config

const (
	defaultStagingDir         = "~/.local/share/tracklist/staging"
	defaultLogDir             = "~/.local/share/tracklist/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultSegmentLength      = 120
	defaultSegmentWorkers     = 8
	defaultMergeLookAhead     = 4
	defaultMinUnmatchedSec    = 90
	defaultMinUniqueTracks    = 5
	defaultMinVideoSeconds    = 900
	defaultMaxVideoSeconds    = 14400
	defaultMinChapterSegments = 5
	defaultShazamBaseURL      = "https://shazam.p.rapidapi.com"
	defaultShazamConcurrency  = 30
	defaultShazamTimeout      = 20
	defaultShazamRetries      = 3
	defaultSpotifyBaseURL     = "https://api.spotify.com/v1"
	defaultSpotifyTokenURL    = "https://accounts.spotify.com/api/token"
	defaultAppleBaseURL       = "https://api.music.apple.com/v1"
	defaultAppleStorefront    = "us"
	defaultWorkers            = 1
	defaultQueuePollInterval  = 10
	defaultErrorRetryInterval = 5
	defaultPremiereSweep      = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Ingest: Ingest{
			SegmentLength:      defaultSegmentLength,
			SegmentWorkers:     defaultSegmentWorkers,
			MergeLookAhead:     defaultMergeLookAhead,
			MinUnmatchedSec:    defaultMinUnmatchedSec,
			MinUniqueTracks:    defaultMinUniqueTracks,
			MinVideoSeconds:    defaultMinVideoSeconds,
			MaxVideoSeconds:    defaultMaxVideoSeconds,
			MinChapterSegments: defaultMinChapterSegments,
		},
		Shazam: Shazam{
			BaseURL:        defaultShazamBaseURL,
			Concurrency:    defaultShazamConcurrency,
			RequestTimeout: defaultShazamTimeout,
			MaxRetries:     defaultShazamRetries,
		},
		Spotify: Spotify{
			BaseURL:  defaultSpotifyBaseURL,
			TokenURL: defaultSpotifyTokenURL,
		},
		Apple: Apple{
			BaseURL:    defaultAppleBaseURL,
			Storefront: defaultAppleStorefront,
		},
		Workflow: Workflow{
			Workers:               defaultWorkers,
			QueuePollInterval:     defaultQueuePollInterval,
			ErrorRetryInterval:    defaultErrorRetryInterval,
			PremiereSweepInterval: defaultPremiereSweep,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
