package state

import (
	"github.com/edpaget/kongfig/pkg/common"
)

// derived caches the gateway adds to plugin config
var cacheFields = []string{common.KeyDerCache, common.CertDerCache}

// SanitizeConfig returns a copy of a plugin config without the fields the
// gateway derives and caches on its own.
func SanitizeConfig(config map[string]interface{}) map[string]interface{} {
	sanitized := make(map[string]interface{}, len(config))
	for k, v := range config {
		sanitized[k] = v
	}
	for _, f := range cacheFields {
		delete(sanitized, f)
	}
	return sanitized
}
