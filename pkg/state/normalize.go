package state

import (
	"sort"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/edpaget/kongfig/pkg/common"
	"github.com/edpaget/kongfig/pkg/kong"
)

// api field sets per era
var (
	legacyApiFields = []string{
		"request_host", "request_path", "strip_request_path", "preserve_host", "upstream_url",
	}
	apiFields = []string{
		"hosts", "uris", "methods", "strip_uri", "preserve_host", "upstream_url", "retries",
		"upstream_connect_timeout", "upstream_read_timeout", "upstream_send_timeout",
		"https_only", "http_if_terminated",
	}
	serviceFields = []string{
		"host", "port", "protocol", "path", "retries", "connect_timeout", "read_timeout", "write_timeout",
	}
)

// raw views used to split records into their parts
type pluginView struct {
	Name   string                 `mapstructure:"name"`
	Config map[string]interface{} `mapstructure:"config"`
}

type routeView struct {
	ID         string                 `mapstructure:"id"`
	CreatedAt  interface{}            `mapstructure:"created_at"`
	UpdatedAt  interface{}            `mapstructure:"updated_at"`
	Service    interface{}            `mapstructure:"service"`
	Plugins    interface{}            `mapstructure:"plugins"`
	Attributes map[string]interface{} `mapstructure:",remain"`
}

type consumerView struct {
	Username string                 `mapstructure:"username"`
	CustomID string                 `mapstructure:"custom_id"`
	Info     map[string]interface{} `mapstructure:",remain"`
}

type aclView struct {
	Group string                 `mapstructure:"group"`
	Info  map[string]interface{} `mapstructure:",remain"`
}

func decode(r kong.Record, view interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           view,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(map[string]interface{}(r)); err != nil {
		return errors.Wrapf(err, "unexpected %s record %s", kindOf(view), r.ID())
	}
	return nil
}

func kindOf(view interface{}) string {
	switch view.(type) {
	case *pluginView:
		return "plugin"
	case *routeView:
		return "route"
	case *consumerView:
		return "consumer"
	case *aclView:
		return "acl"
	}
	return "unknown"
}

// pick copies the listed keys that are present in r.
func pick(r kong.Record, keys ...string) map[string]interface{} {
	m := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		if v, ok := r[k]; ok {
			m[k] = v
		}
	}
	return m
}

// omit copies every key of r except the listed ones.
func omit(r kong.Record, keys ...string) map[string]interface{} {
	m := make(map[string]interface{}, len(r))
	for k, v := range r {
		m[k] = v
	}
	for _, k := range keys {
		delete(m, k)
	}
	return m
}

// setRef copies the id of an owner reference, nested or flat, as "<owner>_id".
func setRef(m map[string]interface{}, r kong.Record, owner string) {
	if id := r.RefID(owner); id != "" {
		m[owner+"_id"] = id
	}
}

// recordList reads an embedded list of records. Anything that is not a list is empty.
func recordList(v interface{}) []kong.Record {
	records := []kong.Record{}
	switch list := v.(type) {
	case []kong.Record:
		records = append(records, list...)
	case []map[string]interface{}:
		for _, r := range list {
			records = append(records, r)
		}
	case []interface{}:
		for _, item := range list {
			switch r := item.(type) {
			case map[string]interface{}:
				records = append(records, r)
			case kong.Record:
				records = append(records, r)
			}
		}
	}
	return records
}

// Normalizer maps a RawSnapshot into the canonical State.
type Normalizer struct {
	caps kong.Capabilities
	doc  *DesiredState
}

func NewNormalizer(caps kong.Capabilities, doc *DesiredState) *Normalizer {
	return &Normalizer{caps: caps, doc: doc}
}

// Normalize builds the canonical State of a raw snapshot. It does not modify raw.
func Normalize(raw *RawSnapshot, doc *DesiredState) (*State, error) {
	return NewNormalizer(raw.Capabilities, doc).Normalize(raw)
}

func (n *Normalizer) Normalize(raw *RawSnapshot) (*State, error) {
	var err error
	s := &State{Info: StateInfo{Version: raw.Version.String()}}

	if s.Apis, err = n.apis(raw.Apis); err != nil {
		return nil, err
	}
	if s.Services, s.Routes, err = n.servicesAndRoutes(raw.Services, raw.Routes); err != nil {
		return nil, err
	}
	if s.Consumers, err = n.consumers(raw.Consumers); err != nil {
		return nil, err
	}
	if s.Plugins, err = n.globalPlugins(raw.Plugins); err != nil {
		return nil, err
	}
	if n.caps.HasUpstreams {
		upstreams := n.upstreams(raw.Upstreams)
		s.Upstreams = &upstreams
	}
	if n.caps.HasCertificates {
		certificates := n.certificates(raw.Certificates)
		s.Certificates = &certificates
	}
	return s, nil
}

func (n *Normalizer) apis(raw []RawApi) ([]Api, error) {
	fields := legacyApiFields
	if n.caps.ModernApis {
		fields = apiFields
	}
	apis := make([]Api, 0, len(raw))
	for _, a := range raw {
		plugins, err := n.plugins(a.Plugins)
		if err != nil {
			return nil, err
		}
		apis = append(apis, Api{
			Entity: Entity{
				Name:       a.Api.String(common.FieldName),
				Attributes: pick(a.Api, fields...),
				Info:       pick(a.Api, common.FieldID, common.FieldCreatedAt),
			},
			Plugins: plugins,
		})
	}
	return apis, nil
}

// servicesAndRoutes normalizes services with the routes they own, and the
// flat route list. Services exist only on gateways that support them.
func (n *Normalizer) servicesAndRoutes(rawServices []RawService, rawRoutes []kong.Record) ([]Service, []Route, error) {
	if !n.caps.HasServices {
		return []Service{}, []Route{}, nil
	}

	names := make(map[string]string, len(rawServices))
	for _, s := range rawServices {
		names[s.Service.ID()] = s.Service.String(common.FieldName)
	}

	routes := make([]Route, 0, len(rawRoutes))
	owned := make(map[string][]Route, len(rawServices))
	for _, r := range rawRoutes {
		serviceID := r.RefID(common.FieldService)
		route, err := n.route(r, names[serviceID])
		if err != nil {
			return nil, nil, err
		}
		routes = append(routes, route)
		owned[serviceID] = append(owned[serviceID], route)
	}

	services := make([]Service, 0, len(rawServices))
	for _, s := range rawServices {
		plugins, err := n.plugins(s.Plugins)
		if err != nil {
			return nil, nil, err
		}
		serviceRoutes := owned[s.Service.ID()]
		if serviceRoutes == nil {
			serviceRoutes = []Route{}
		}
		services = append(services, Service{
			Entity: Entity{
				Name:       s.Service.String(common.FieldName),
				Attributes: pick(s.Service, serviceFields...),
				Info:       pick(s.Service, common.FieldID, common.FieldCreatedAt, common.FieldUpdatedAt),
			},
			Plugins: plugins,
			Routes:  serviceRoutes,
		})
	}
	return services, routes, nil
}

func (n *Normalizer) route(r kong.Record, serviceName string) (Route, error) {
	var v routeView
	if err := decode(r, &v); err != nil {
		return Route{}, err
	}
	plugins, err := n.plugins(recordList(v.Plugins))
	if err != nil {
		return Route{}, err
	}
	attributes := v.Attributes
	if attributes == nil {
		attributes = map[string]interface{}{}
	}
	return Route{
		Entity: Entity{
			Name:       ResolveRouteName(r, serviceName, n.doc),
			Attributes: attributes,
			Info:       pick(r, common.FieldID, common.FieldCreatedAt, common.FieldUpdatedAt),
		},
		Plugins: plugins,
	}, nil
}

func (n *Normalizer) plugin(r kong.Record, global bool) (Plugin, error) {
	var v pluginView
	if err := decode(r, &v); err != nil {
		return Plugin{}, err
	}
	attributes := pick(r, common.FieldEnabled)
	setRef(attributes, r, common.FieldConsumer)
	attributes[common.FieldConfig] = SanitizeConfig(v.Config)

	info := pick(r, common.FieldID, common.FieldCreatedAt)
	setRef(info, r, common.FieldConsumer)
	if global {
		for k, val := range pick(r, common.FieldApiID) {
			info[k] = val
		}
		// owners of plugins that are only listed in the global collection
		setRef(info, r, common.FieldService)
		setRef(info, r, common.FieldRoute)
	}
	return Plugin{
		Name:       v.Name,
		Attributes: attributes,
		Info:       info,
	}, nil
}

// plugins normalizes plugins read through their owning api, service or route.
func (n *Normalizer) plugins(raw []kong.Record) ([]Plugin, error) {
	plugins := make([]Plugin, 0, len(raw))
	for _, r := range raw {
		p, err := n.plugin(r, false)
		if err != nil {
			return nil, err
		}
		plugins = append(plugins, p)
	}
	return plugins, nil
}

func (n *Normalizer) globalPlugins(raw []kong.Record) ([]Plugin, error) {
	plugins := make([]Plugin, 0, len(raw))
	for _, r := range raw {
		p, err := n.plugin(r, true)
		if err != nil {
			return nil, err
		}
		if p.Name == "" {
			continue
		}
		plugins = append(plugins, p)
	}
	return plugins, nil
}

func (n *Normalizer) consumers(raw []RawConsumer) ([]Consumer, error) {
	consumers := make([]Consumer, 0, len(raw))
	for _, c := range raw {
		var v consumerView
		if err := decode(c.Consumer, &v); err != nil {
			return nil, err
		}
		consumer := Consumer{
			Username:    v.Username,
			CustomID:    v.CustomID,
			Info:        Info(v.Info),
			ACLs:        []ACL{},
			Credentials: credentials(c.Credentials),
		}
		if consumer.Info == nil {
			consumer.Info = Info{}
		}
		for _, a := range c.ACLs {
			acl, err := parseACL(a)
			if err != nil {
				return nil, err
			}
			consumer.ACLs = append(consumer.ACLs, acl)
		}
		consumers = append(consumers, consumer)
	}
	return consumers, nil
}

func parseACL(r kong.Record) (ACL, error) {
	var v aclView
	if err := decode(r, &v); err != nil {
		return ACL{}, err
	}
	info := Info(v.Info)
	if info == nil {
		info = Info{}
	}
	return ACL{Group: v.Group, Info: info}, nil
}

// credentials flattens credentials grouped by type, in type name order.
func credentials(byType map[string][]kong.Record) []Credential {
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	creds := []Credential{}
	for _, t := range types {
		for _, r := range byType[t] {
			info := pick(r, common.FieldID, common.FieldCreatedAt)
			setRef(info, r, common.FieldConsumer)
			creds = append(creds, Credential{
				Name:       t,
				Attributes: omit(r, common.FieldID, common.FieldConsumerID, common.FieldConsumer, common.FieldCreatedAt),
				Info:       info,
			})
		}
	}
	return creds
}

func (n *Normalizer) upstreams(raw []RawUpstream) []Upstream {
	upstreams := make([]Upstream, 0, len(raw))
	for _, u := range raw {
		targets := make([]Target, 0, len(u.Targets))
		for _, t := range u.Targets {
			targets = append(targets, Target{
				Name:       t.String(common.FieldTarget),
				Attributes: omit(t, common.FieldID, common.FieldCreatedAt, common.FieldTarget, common.FieldUpstreamID, "upstream"),
				Info:       pick(t, common.FieldID, common.FieldUpstreamID, "upstream", common.FieldCreatedAt),
			})
		}
		upstreams = append(upstreams, Upstream{
			Entity: Entity{
				Name:       u.Upstream.String(common.FieldName),
				Attributes: omit(u.Upstream, common.FieldID, common.FieldCreatedAt, common.FieldName, common.FieldTargets),
				Info:       pick(u.Upstream, common.FieldID, common.FieldCreatedAt),
			},
			Targets: targets,
		})
	}
	return upstreams
}

func (n *Normalizer) certificates(raw []kong.Record) []Certificate {
	certificates := make([]Certificate, 0, len(raw))
	for _, c := range raw {
		certificates = append(certificates, Certificate{
			Name:       c.ID(),
			Attributes: omit(c, common.FieldID, common.FieldCreatedAt),
			Info:       pick(c, common.FieldID, common.FieldCreatedAt),
		})
	}
	return certificates
}
