package gateway

import (
	internal "github.com/frahmantamala/subscription-billing/internal"
)

// Credentials is an immutable value resolved once at startup from the
// active config mode. It is passed explicitly into the signature and
// envelope functions so distinct test/production sets can coexist in one
// process.
type Credentials struct {
	ClientCode     string
	ClientUsername string
	ClientPassword string
	TerminalID     string
	SecretGUID     string
	EndpointURL    string
	Mode           string
}

// ResolveCredentials selects the credential set for the configured mode.
// Config validation has already guaranteed the set is complete.
func ResolveCredentials(cfg internal.GatewayConfig) Credentials {
	active := cfg.Active()
	return Credentials{
		ClientCode:     active.ClientCode,
		ClientUsername: active.ClientUsername,
		ClientPassword: active.ClientPassword,
		TerminalID:     active.TerminalID,
		SecretGUID:     active.SecretGUID,
		EndpointURL:    active.EndpointURL,
		Mode:           cfg.Mode,
	}
}
