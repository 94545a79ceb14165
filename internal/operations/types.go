package operations

// Step identifiers
const (
	StepIDCanonical = "canonical"
	StepIDObserved  = "observed"
	StepIDSimulated = "simulated"
	StepIDCompare   = "compare"
	StepIDExport    = "export"
)

// Step names
const (
	StepNameCanonical = "Identity Registries"
	StepNameObserved  = "Observed Reduction"
	StepNameSimulated = "Simulated Reduction"
	StepNameCompare   = "Criteria Comparison"
	StepNameExport    = "Artifact Export"
)

// Step metadata keys
const (
	MetadataAmbiguities = "identity_ambiguities"
	MetadataCrosswalks  = "crosswalk_entries"
	MetadataRows        = "rows"
	MetadataRecords     = "records"
	MetadataFailed      = "failed_criteria"
	MetadataOutputs     = "outputs"
)
