package preflight

// Plan selects which checks Run performs.
type Plan struct {
	DestinationAccessible bool
	DestinationWritable   bool
	PathNesting           bool

	// Global Flags
	DryRun bool
}
