package kong

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/blang/semver/v4"
)

// thresholds at which the admin API changed shape
var (
	Version0_10 = semver.MustParse("0.10.0")
	Version0_12 = semver.MustParse("0.12.0")
	Version0_13 = semver.MustParse("0.13.0")
)

// matches the numeric core of versions such as "0.10.0rc1", "v0.13.1" or "0.34-1-enterprise-edition"
var versionCore = regexp.MustCompile(`^v?(\d+)(\.\d+)?(\.\d+)?`)

// VersionParseError is returned when the gateway reports a version that can not be compared.
type VersionParseError struct {
	Raw string
	Err error
}

func (e *VersionParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unable to parse kong version %q", e.Raw)
	}
	return fmt.Sprintf("unable to parse kong version %q: %s", e.Raw, e.Err)
}

func (e *VersionParseError) Unwrap() error {
	return e.Err
}

// Version is the control plane version reduced to major.minor.patch.
type Version struct {
	raw string
	v   semver.Version
}

// ParseVersion parses the version string reported by the admin API. Pre-release
// and build information is dropped before comparison.
func ParseVersion(raw string) (Version, error) {
	core := versionCore.FindString(strings.TrimSpace(raw))
	if core == "" {
		return Version{}, &VersionParseError{Raw: raw}
	}
	v, err := semver.ParseTolerant(core)
	if err != nil {
		return Version{}, &VersionParseError{Raw: raw, Err: err}
	}
	return Version{raw: raw, v: v}, nil
}

// MustParseVersion is like ParseVersion but panics on error.
func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) AtLeast(threshold semver.Version) bool {
	return v.v.GTE(threshold)
}

func (v Version) AtMost(threshold semver.Version) bool {
	return v.v.LTE(threshold)
}

// String returns the version as reported by the gateway.
func (v Version) String() string {
	return v.raw
}

// TargetStrategy selects the endpoint used to list upstream targets.
type TargetStrategy int

const (
	// TargetsAll lists the full target history of an upstream.
	TargetsAll TargetStrategy = iota
	// TargetsActive lists only active targets, the 0.11.x interim endpoint.
	TargetsActive
)

func (s TargetStrategy) String() string {
	if s == TargetsActive {
		return "active"
	}
	return "all"
}

// Capabilities are the resource families and shapes a control plane supports.
// They are derived once per version and passed to the fetch and normalize stages.
type Capabilities struct {
	ModernApis      bool
	HasServices     bool
	HasUpstreams    bool
	HasCertificates bool
	TargetStrategy  TargetStrategy
}

// CapabilitiesFor derives the capability set of a control plane version.
func CapabilitiesFor(v Version) Capabilities {
	loadBalancing := !v.AtMost(Version0_10)
	caps := Capabilities{
		ModernApis:      v.AtLeast(Version0_10),
		HasServices:     v.AtLeast(Version0_13),
		HasUpstreams:    loadBalancing,
		HasCertificates: loadBalancing,
		TargetStrategy:  TargetsAll,
	}
	if !v.AtLeast(Version0_12) {
		caps.TargetStrategy = TargetsActive
	}
	return caps
}
