package state

// Attributes are the declarative fields of an entity, the ones a desired
// state document may set.
type Attributes map[string]interface{}

// Info holds server assigned identity and audit fields. They locate the live
// object on the gateway and are never compared as desired state.
type Info map[string]interface{}

// Entity is the canonical record shape shared by every entity family.
type Entity struct {
	Name       string     `json:"name" yaml:"name"`
	Attributes Attributes `json:"attributes" yaml:"attributes"`
	Info       Info       `json:"_info" yaml:"_info"`
}

type (
	Plugin      = Entity
	Credential  = Entity
	Target      = Entity
	Certificate = Entity
)

type Api struct {
	Entity  `yaml:",inline"`
	Plugins []Plugin `json:"plugins" yaml:"plugins"`
}

type Service struct {
	Entity  `yaml:",inline"`
	Plugins []Plugin `json:"plugins" yaml:"plugins"`
	Routes  []Route  `json:"routes" yaml:"routes"`
}

type Route struct {
	Entity  `yaml:",inline"`
	Plugins []Plugin `json:"plugins" yaml:"plugins"`
}

type Consumer struct {
	Username    string       `json:"username,omitempty" yaml:"username,omitempty"`
	CustomID    string       `json:"custom_id,omitempty" yaml:"custom_id,omitempty"`
	Info        Info         `json:"_info" yaml:"_info"`
	ACLs        []ACL        `json:"acls" yaml:"acls"`
	Credentials []Credential `json:"credentials" yaml:"credentials"`
}

type ACL struct {
	Group string `json:"group" yaml:"group"`
	Info  Info   `json:"_info" yaml:"_info"`
}

type Upstream struct {
	Entity  `yaml:",inline"`
	Targets []Target `json:"targets" yaml:"targets"`
}

type StateInfo struct {
	Version string `json:"version" yaml:"version"`
}

// State is the canonical, version independent snapshot of a gateway.
// Upstreams and Certificates are nil when the gateway predates them, and
// point to a possibly empty list otherwise.
type State struct {
	Info         StateInfo      `json:"_info" yaml:"_info"`
	Apis         []Api          `json:"apis" yaml:"apis"`
	Services     []Service      `json:"services" yaml:"services"`
	Routes       []Route        `json:"routes" yaml:"routes"`
	Consumers    []Consumer     `json:"consumers" yaml:"consumers"`
	Plugins      []Plugin       `json:"plugins" yaml:"plugins"`
	Upstreams    *[]Upstream    `json:"upstreams,omitempty" yaml:"upstreams,omitempty"`
	Certificates *[]Certificate `json:"certificates,omitempty" yaml:"certificates,omitempty"`
}
