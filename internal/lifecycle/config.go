package lifecycle

import "time"

// Config holds the observation windows for job watches. The defaults are the
// empirically chosen production values; tests shrink them.
type Config struct {
	// WatchTimeout is how long a text or publish job may go unobserved
	// before the safety-net ledger check declares its outcome unknown.
	WatchTimeout time.Duration

	// ImagePollInterval is the fixed interval between ledger polls for
	// image generation jobs, which have no push channel.
	ImagePollInterval time.Duration

	// ImagePollTimeout is the hard deadline for an image job, measured from
	// submission.
	ImagePollTimeout time.Duration

	// ImageGenerationEnabled gates image job submission for the owning site.
	ImageGenerationEnabled bool
}

// DefaultConfig returns a Config with the production defaults.
func DefaultConfig() Config {
	return Config{
		WatchTimeout:           30 * time.Second,
		ImagePollInterval:      5 * time.Second,
		ImagePollTimeout:       5 * time.Minute,
		ImageGenerationEnabled: true,
	}
}
