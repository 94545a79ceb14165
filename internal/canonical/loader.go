package canonical

import (
	"log/slog"

	"acceptcli/internal/config"
	"acceptcli/internal/dataprocessing"
)

// AlternatePrefix marks alias columns in reference tables
const AlternatePrefix = "alternate_"

// Load builds the registry from the configured reference tables. Agencies
// are loaded before stations so station operators can be canonicalized.
func Load(cfg config.CanonicalConfig, logger *slog.Logger) (*Registry, error) {
	b := NewBuilder(logger)

	agencies, err := dataprocessing.ReadTable(cfg.AgencyNames, "canonical")
	if err != nil {
		return nil, err
	}
	b.AddTable(DomainAgency, agencies)

	stations, err := dataprocessing.ReadTable(cfg.StationNames, "operator", "canonical")
	if err != nil {
		return nil, err
	}
	b.AddStationTable(stations)

	counties, err := dataprocessing.ReadTable(cfg.Counties, "county")
	if err != nil {
		return nil, err
	}
	for i := 0; i < counties.Len(); i++ {
		b.Add(DomainCounty, counties.String(i, "county"), alternates(counties, i)...)
	}

	return b.Build(), nil
}

// AddTable adds every row of a canonical/alternate_* table to domain
func (b *Builder) AddTable(domain Domain, t *dataprocessing.Table) {
	for i := 0; i < t.Len(); i++ {
		b.Add(domain, t.String(i, "canonical"), alternates(t, i)...)
	}
}

// AddStationTable adds every row of an operator/canonical/alternate_* table
func (b *Builder) AddStationTable(t *dataprocessing.Table) {
	for i := 0; i < t.Len(); i++ {
		b.AddStation(t.String(i, "operator"), t.String(i, "canonical"), alternates(t, i)...)
	}
}

func alternates(t *dataprocessing.Table, row int) []string {
	cols := t.ColumnsWithPrefix(AlternatePrefix)
	aliases := make([]string, 0, len(cols))
	for _, col := range cols {
		if v := t.String(row, col); v != "" {
			aliases = append(aliases, v)
		}
	}
	return aliases
}
