package providers

import "time"

// maxAttemptDelay caps per-attempt retry backoff inside a single provider.
const maxAttemptDelay = 60 * time.Second

// AttemptBackoff returns the delay before retry number retry (0-based):
// base, base*2, base*4, ... capped at 60 seconds.
func AttemptBackoff(base time.Duration, retry int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	delay := base
	for i := 0; i < retry; i++ {
		if delay >= maxAttemptDelay/2 {
			return maxAttemptDelay
		}
		delay *= 2
	}
	if delay > maxAttemptDelay {
		return maxAttemptDelay
	}
	return delay
}

// RateLimitBackoff doubles the normal attempt backoff when the provider
// reported a rate limit, still capped at 60 seconds.
func RateLimitBackoff(base time.Duration, retry int) time.Duration {
	delay := AttemptBackoff(base, retry) * 2
	if delay > maxAttemptDelay {
		return maxAttemptDelay
	}
	return delay
}
