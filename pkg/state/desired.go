package state

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/edpaget/kongfig/pkg/kong"
)

// DesiredState is the part of a desired state document used to name routes.
// JSON documents are read as well since JSON is valid YAML.
type DesiredState struct {
	Services []DesiredService `yaml:"services"`
}

type DesiredService struct {
	Name   string         `yaml:"name"`
	Routes []DesiredRoute `yaml:"routes"`
}

type DesiredRoute struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

func ParseDesiredState(data []byte) (*DesiredState, error) {
	doc := &DesiredState{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, errors.Wrap(err, "parsing desired state")
	}
	return doc, nil
}

// LoadDesiredState reads a desired state document. An empty path means no document.
func LoadDesiredState(path string) (*DesiredState, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading desired state %s", path)
	}
	return ParseDesiredState(data)
}

func (d *DesiredState) service(name string) (DesiredService, bool) {
	for _, s := range d.Services {
		if s.Name == name {
			return s, true
		}
	}
	return DesiredService{}, false
}

// ResolveRouteName returns the name a desired state document declares for a
// route of the named service, falling back to the route's id.
func ResolveRouteName(route kong.Record, serviceName string, doc *DesiredState) string {
	id := route.ID()
	if doc == nil || serviceName == "" {
		return id
	}
	service, ok := doc.service(serviceName)
	if !ok {
		return id
	}
	for _, r := range service.Routes {
		if r.ID == id && r.Name != "" {
			return r.Name
		}
	}
	return id
}
