package auth

// Profile is a normalized external identity returned by an OAuth provider.
// It contains facts only, no decisions: reconciliation against local
// accounts happens elsewhere.
type Profile struct {
	Provider      string         // e.g. "google", "linkedin"
	SubjectID     string         // provider-scoped unique user identifier (sub)
	Email         string         // email returned by provider, may be empty
	EmailVerified bool           // whether the provider asserts email ownership
	DisplayName   string         // human-readable name, may be empty
	Raw           map[string]any // provider payload kept for auditing
}
