package crosswalk

// NullDistrict collects zones that have no district
const NullDistrict = ""

// DistrictPair is an origin/destination district pair
type DistrictPair struct {
	Orig string `json:"orig_district"`
	Dest string `json:"dest_district"`
}

// Districts maps zones to districts
type Districts struct {
	*Crosswalk[string, string]
}

// NewDistricts creates an empty zone to district crosswalk
func NewDistricts() Districts {
	return Districts{New[string, string]("zone_districts")}
}

// District returns the district of zone, or NullDistrict
func (d Districts) District(zone string) string {
	if d.Crosswalk == nil {
		return NullDistrict
	}
	if district, ok := d.Lookup(zone); ok {
		return district
	}
	return NullDistrict
}

// Pair rolls an OD zone pair up to its district pair
func (d Districts) Pair(orig, dest string) DistrictPair {
	return DistrictPair{Orig: d.District(orig), Dest: d.District(dest)}
}

// Unassigned counts the distinct zones among zones that have no district
func (d Districts) Unassigned(zones []string) int {
	seen := make(map[string]bool)
	for _, z := range zones {
		if d.District(z) == NullDistrict {
			seen[z] = true
		}
	}
	return len(seen)
}
