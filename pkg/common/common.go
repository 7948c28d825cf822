package common

// log field keys
const (
	AttrKongVersion    = "kongVersion"
	AttrAdminURL       = "adminUrl"
	AttrApiID          = "apiId"
	AttrServiceID      = "serviceId"
	AttrConsumerID     = "consumerId"
	AttrCustomID       = "customId"
	AttrUpstreamID     = "upstreamId"
	AttrCredentialType = "credentialType"
	AttrEndpoint       = "endpoint"
	AttrPluginName     = "pluginName"
)

// raw record keys shared across entity families
const (
	FieldID         = "id"
	FieldName       = "name"
	FieldCreatedAt  = "created_at"
	FieldUpdatedAt  = "updated_at"
	FieldConsumerID = "consumer_id"
	FieldConsumer   = "consumer"
	FieldApiID      = "api_id"
	FieldService    = "service"
	FieldRoute      = "route"
	FieldUsername   = "username"
	FieldCustomID   = "custom_id"
	FieldTarget     = "target"
	FieldTargets    = "targets"
	FieldUpstreamID = "upstream_id"
	FieldConfig     = "config"
	FieldEnabled    = "enabled"
	FieldVersion    = "version"
)

// gateway-injected plugin config caches
const (
	KeyDerCache  = "_key_der_cache"
	CertDerCache = "_cert_der_cache"
)

// credential plugins
const (
	KeyAuthPlugin   = "key-auth"
	BasicAuthPlugin = "basic-auth"
	OAuth2Plugin    = "oauth2"
	HmacAuthPlugin  = "hmac-auth"
	JWTPlugin       = "jwt"
)
