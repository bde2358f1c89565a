package payments

import (
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
)

// Gateway authenticates and decodes provider webhook deliveries.
type Gateway struct {
	secrets map[Provider][]byte
}

// NewGateway takes the shared signing secret of each provider, keyed by name.
// Providers without a secret reject every delivery.
func NewGateway(secrets map[string]string) *Gateway {
	g := &Gateway{secrets: make(map[Provider][]byte, len(secrets))}
	for name, secret := range secrets {
		p, err := ParseProvider(name)
		if err != nil || secret == "" {
			continue
		}
		g.secrets[p] = []byte(secret)
	}
	return g
}

// Parse verifies the signature before looking at the payload.
func (g *Gateway) Parse(provider, signature string, body []byte) (Event, error) {
	p, err := ParseProvider(provider)
	if err != nil {
		return Event{}, err
	}
	if !Verify(g.secrets[p], body, signature) {
		return Event{}, domain.ErrProviderSignature
	}
	return Decode(p, body)
}
