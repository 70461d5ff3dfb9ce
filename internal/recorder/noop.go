package recorder

// NoopRecorder is used when no history database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordNavigation(_ *NavigationEvent) error   { return nil }
func (n *NoopRecorder) RecordMilestone(_ *MilestoneEvent) error     { return nil }
func (n *NoopRecorder) RecordCalculation(_ *CalculationEvent) error { return nil }
func (n *NoopRecorder) RecordSnapshot(_ *Snapshot) error            { return nil }
func (n *NoopRecorder) Close() error                                { return nil }
