package kong

import (
	"github.com/edpaget/kongfig/pkg/common"
)

// CredentialRegistry provides the credential plugin names that are read for every consumer.
type CredentialRegistry interface {
	SupportedCredentials() []string
}

// CredentialTypes is a fixed CredentialRegistry.
type CredentialTypes []string

func (c CredentialTypes) SupportedCredentials() []string {
	return c
}

// DefaultCredentials are the credential plugins bundled with the gateway.
var DefaultCredentials = CredentialTypes{
	common.OAuth2Plugin,
	common.KeyAuthPlugin,
	common.JWTPlugin,
	common.BasicAuthPlugin,
	common.HmacAuthPlugin,
}

// IsCustomIDOnly reports whether a consumer is identified only by a custom_id.
// Credentials and ACLs are not read for these consumers.
func IsCustomIDOnly(consumer Record) bool {
	return consumer.String(common.FieldCustomID) != "" && consumer.String(common.FieldUsername) == ""
}
