package middleware

// SecurityPolicy is chosen by the deployment entrypoint and injected at
// router assembly. Guards never branch on environment variables; turning
// a guard off for a test harness happens here, explicitly.
type SecurityPolicy struct {
	CSRFProtection bool
	RateLimiting   bool
}

func DefaultSecurityPolicy() SecurityPolicy {
	return SecurityPolicy{CSRFProtection: true, RateLimiting: true}
}
