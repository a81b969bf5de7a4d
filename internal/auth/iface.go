package auth

// Provider is the authentication interface used by the GQL and PubSub
// clients. The credential exchange itself happens outside this process;
// a Provider only hands out the resulting token.
type Provider interface {
	// AuthToken returns the current OAuth token, or "" after sign-out.
	AuthToken() string
	// UserID returns the authenticated user's numeric id.
	UserID() string
	// GetAuthHeaders returns the headers to attach to API requests.
	GetAuthHeaders() map[string]string
	// SignOut invalidates the token. Called on an unrecoverable 401.
	SignOut()
}
