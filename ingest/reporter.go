package ingest

// Reporter is told about each processed line as a run goes, for progress
// displays. Calls come from the goroutine running the import.
type Reporter interface {
	// LineProcessed reports a line that was either saved, or skipped
	// because of err.
	LineProcessed(saved bool, err error)
	Finished(summary Summary, err error)
}

type nopReporter struct{}

func (nopReporter) LineProcessed(saved bool, err error) {}
func (nopReporter) Finished(summary Summary, err error) {}
