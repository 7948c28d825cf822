package kong

import (
	"github.com/edpaget/kongfig/pkg/common"
)

// IsGlobalPlugin reports whether a plugin from the /plugins collection belongs
// to the global set. Only plugins owned by a legacy api are read through
// their owner; service, route and consumer plugins stay in the global set.
func IsGlobalPlugin(p Record) bool {
	return !p.Has(common.FieldApiID)
}

// GlobalPlugins filters the /plugins collection down to the global set.
func GlobalPlugins(plugins []Record) []Record {
	global := make([]Record, 0, len(plugins))
	for _, p := range plugins {
		if IsGlobalPlugin(p) {
			global = append(global, p)
		}
	}
	return global
}
