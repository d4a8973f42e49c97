package jwtx

// Signer is anything that can mint session JWTs.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	PublicJWK() JWK
	Validate() error
}

// NewSignerEdDSA creates an EdDSA signer from a PKCS8 PEM key. When kid is
// empty one is derived from the public key, so every process loading the
// same key file publishes the same kid.
func NewSignerEdDSA(kid string, pemKey []byte) (Signer, error) {
	return newEdDSASigner(kid, pemKey)
}
