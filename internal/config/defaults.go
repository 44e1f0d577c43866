package config

const (
	defaultLogDir                  = "~/.local/share/shelfscan/logs"
	defaultTMDBLanguage            = "en-US"
	defaultTMDBBaseURL             = "https://api.themoviedb.org/3"
	defaultUPCBaseURL              = "https://api.upcitemdb.com/prod/trial/lookup"
	defaultRequestTimeoutSeconds   = 10
	defaultCacheBackend            = "sqlite"
	defaultCacheKeyPrefix          = "shelfscan_"
	defaultCacheMaxBytes           = 5 * 1024 * 1024
	defaultCacheTTLHours           = 24
	defaultUPCTTLHours             = 24 * 30
	defaultSearchTTLHours          = 24 * 7
	defaultDetailsTTLHours         = 24 * 7
	defaultReviewThreshold         = 35
	defaultShortCircuitScore       = 90
	defaultYearTolerance           = 2
	defaultMinPopularity           = 0.5
	defaultScanMinIntervalMillis   = 2000
	defaultScanReadyPauseMillis    = 1500
	defaultScanStaleAfterSeconds   = 30
	defaultScanSweepIntervalSecond = 30
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

var defaultDeviceSubsystems = []string{"video4linux", "input"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir(),
			LogDir:   defaultLogDir,
		},
		TMDB: TMDB{
			Language:              defaultTMDBLanguage,
			BaseURL:               defaultTMDBBaseURL,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		UPC: UPC{
			BaseURL:               defaultUPCBaseURL,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Cache: Cache{
			Backend:         defaultCacheBackend,
			KeyPrefix:       defaultCacheKeyPrefix,
			MaxBytes:        defaultCacheMaxBytes,
			DefaultTTLHours: defaultCacheTTLHours,
			UPCTTLHours:     defaultUPCTTLHours,
			SearchTTLHours:  defaultSearchTTLHours,
			DetailsTTLHours: defaultDetailsTTLHours,
		},
		Identification: Identification{
			ReviewThreshold:         defaultReviewThreshold,
			ShortCircuitScore:       defaultShortCircuitScore,
			YearTolerance:           defaultYearTolerance,
			MinPopularity:           defaultMinPopularity,
			IncludePersonStrategies: true,
		},
		Scanner: Scanner{
			Continuous:           true,
			MinIntervalMillis:    defaultScanMinIntervalMillis,
			ReadyPauseMillis:     defaultScanReadyPauseMillis,
			StaleAfterSeconds:    defaultScanStaleAfterSeconds,
			SweepIntervalSeconds: defaultScanSweepIntervalSecond,
			DeviceSubsystems:     append([]string(nil), defaultDeviceSubsystems...),
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
