package viewmodels

type PreviewVM struct {
	BaseVM
	// Kind is the surface kind the page registers as.
	Kind        string
	HeartbeatMs int
}
