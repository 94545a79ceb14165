// Package canonical resolves the raw names used by observation and simulation
// sources into canonical agency, station and county identities.
//
// A Registry is assembled once per run by a Builder and is read-only
// afterwards. Unknown names resolve to Missing, never to a different canonical
// name.
package canonical

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	apperrors "acceptcli/internal/errors"
)

// Name is a canonical identity
type Name string

// Missing is returned for names the registry does not know
const Missing Name = ""

// IsMissing reports whether n is the Missing sentinel
func (n Name) IsMissing() bool {
	return n == Missing
}

func (n Name) String() string {
	return string(n)
}

// Domain is a namespace of canonical names
type Domain string

const (
	DomainAgency  Domain = "agency"
	DomainStation Domain = "station"
	DomainCounty  Domain = "county"
)

// Ambiguity records an alias claimed by two canonical names. The later
// claim is the one the registry resolves to.
type Ambiguity struct {
	Domain   Domain `json:"domain"`
	Scope    string `json:"scope,omitempty"`
	Alias    string `json:"alias"`
	Previous Name   `json:"previous"`
	Winner   Name   `json:"winner"`
}

// Registry maps aliases to canonical names per domain
type Registry struct {
	aliases     map[Domain]map[string]Name
	canonicals  map[Domain]map[Name]bool
	ambiguities []Ambiguity
}

// normalizeAlias folds case and whitespace so that " SF  Muni" and "sf muni"
// are the same alias
func normalizeAlias(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}

// scopedAlias is the lookup key for operator-scoped station names
func scopedAlias(operator Name, raw string) string {
	return normalizeAlias(string(operator)) + "|" + normalizeAlias(raw)
}

// Resolve returns the canonical name for raw in an unscoped domain
func (r *Registry) Resolve(domain Domain, raw string) Name {
	key := normalizeAlias(raw)
	if key == "" {
		return Missing
	}
	return r.aliases[domain][key]
}

// Agency resolves an operator or agency name
func (r *Registry) Agency(raw string) Name {
	return r.Resolve(DomainAgency, raw)
}

// County resolves a county name
func (r *Registry) County(raw string) Name {
	return r.Resolve(DomainCounty, raw)
}

// Station resolves a station name within an operator. The operator is first
// canonicalized through the agency domain.
func (r *Registry) Station(operator, raw string) Name {
	if normalizeAlias(raw) == "" {
		return Missing
	}
	op := r.operatorScope(operator)
	if op.IsMissing() {
		return Missing
	}
	return r.aliases[DomainStation][scopedAlias(op, raw)]
}

// operatorScope canonicalizes an operator, keeping the raw name when the
// agency table does not list it
func (r *Registry) operatorScope(operator string) Name {
	if op := r.Agency(operator); !op.IsMissing() {
		return op
	}
	return Name(strings.Join(strings.Fields(operator), " "))
}

// Contains reports whether name is canonical in domain
func (r *Registry) Contains(domain Domain, name Name) bool {
	return r.canonicals[domain][name]
}

// Canonicals returns the sorted canonical names of a domain
func (r *Registry) Canonicals(domain Domain) []Name {
	names := make([]Name, 0, len(r.canonicals[domain]))
	for n := range r.canonicals[domain] {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Ambiguities returns the alias collisions seen while building
func (r *Registry) Ambiguities() []Ambiguity {
	return append([]Ambiguity(nil), r.ambiguities...)
}

// CheckCounties verifies that the non-Missing names in observed are exactly
// the reference county list
func (r *Registry) CheckCounties(source string, observed []Name) error {
	seen := make(map[Name]bool, len(observed))
	for _, n := range observed {
		if !n.IsMissing() {
			seen[n] = true
		}
	}

	var absent, extra []string
	for _, n := range r.Canonicals(DomainCounty) {
		if !seen[n] {
			absent = append(absent, string(n))
		}
	}
	for n := range seen {
		if !r.canonicals[DomainCounty][n] {
			extra = append(extra, string(n))
		}
	}
	if len(absent) == 0 && len(extra) == 0 {
		return nil
	}

	sort.Strings(extra)
	return apperrors.NewInvariantError(fmt.Sprintf(
		"%s counties do not match the reference county list: absent [%s], unexpected [%s]",
		source, strings.Join(absent, ", "), strings.Join(extra, ", "))).
		WithContext("source", source)
}

// Builder accumulates reference rows into a Registry
type Builder struct {
	logger   *slog.Logger
	registry *Registry
	built    bool
}

// NewBuilder creates an empty builder
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		logger: logger.With(slog.String("component", "canonical")),
		registry: &Registry{
			aliases:    make(map[Domain]map[string]Name),
			canonicals: make(map[Domain]map[Name]bool),
		},
	}
}

// Add registers canonical and its aliases in an unscoped domain. The
// canonical name is also an alias of itself.
func (b *Builder) Add(domain Domain, canonical string, aliases ...string) {
	name := Name(strings.TrimSpace(canonical))
	if name.IsMissing() {
		return
	}
	b.addCanonical(domain, name)
	b.claim(domain, "", normalizeAlias(string(name)), name)
	for _, a := range aliases {
		if key := normalizeAlias(a); key != "" {
			b.claim(domain, "", key, name)
		}
	}
}

// AddStation registers a station canonical name and aliases under an operator
func (b *Builder) AddStation(operator, canonical string, aliases ...string) {
	name := Name(strings.TrimSpace(canonical))
	if name.IsMissing() {
		return
	}
	op := b.registry.operatorScope(operator)
	if op.IsMissing() {
		b.logger.Warn("Station row has no operator", slog.String("station", string(name)))
		return
	}

	b.addCanonical(DomainStation, name)
	b.claim(DomainStation, string(op), scopedAlias(op, string(name)), name)
	for _, a := range aliases {
		if normalizeAlias(a) != "" {
			b.claim(DomainStation, string(op), scopedAlias(op, a), name)
		}
	}
}

func (b *Builder) addCanonical(domain Domain, name Name) {
	if b.registry.canonicals[domain] == nil {
		b.registry.canonicals[domain] = make(map[Name]bool)
	}
	b.registry.canonicals[domain][name] = true
}

// claim maps key to name; a later claim by a different name wins and is
// recorded as an ambiguity
func (b *Builder) claim(domain Domain, scope, key string, name Name) {
	aliases := b.registry.aliases[domain]
	if aliases == nil {
		aliases = make(map[string]Name)
		b.registry.aliases[domain] = aliases
	}

	if prev, ok := aliases[key]; ok && prev != name {
		alias := key
		if scope != "" {
			alias = strings.TrimPrefix(key, normalizeAlias(scope)+"|")
		}
		amb := Ambiguity{Domain: domain, Scope: scope, Alias: alias, Previous: prev, Winner: name}
		b.registry.ambiguities = append(b.registry.ambiguities, amb)

		err := apperrors.NewAmbiguityError(string(domain), alias, string(prev), string(name))
		b.logger.Warn("Alias claimed by more than one canonical name",
			slog.String("domain", string(domain)),
			slog.String("scope", scope),
			slog.String("alias", alias),
			slog.String("previous", string(prev)),
			slog.String("winner", string(name)),
			slog.String("error", err.Error()))
	}
	aliases[key] = name
}

// Build returns the registry. The builder must not be used afterwards.
func (b *Builder) Build() *Registry {
	if b.built {
		panic("canonical: Build called twice")
	}
	b.built = true

	for domain, names := range b.registry.canonicals {
		b.logger.Info("Canonical domain built",
			slog.String("domain", string(domain)),
			slog.Int("canonical_names", len(names)),
			slog.Int("aliases", len(b.registry.aliases[domain])))
	}
	return b.registry
}
