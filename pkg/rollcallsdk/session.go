package rollcallsdk

// Session is an authenticated handle for one caller. Sessions are minted by
// the identity provider; rollcall only verifies them, so there is nothing to
// refresh here. Create a new Session once the token expires.
type Session struct {
	client *SDKClient
	token  string
}

// Token returns the bearer token this session sends.
func (s *Session) Token() string {
	return s.token
}
