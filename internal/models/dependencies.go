package models

// DependencyStatus reports whether one tool could be provisioned and its version
type DependencyStatus struct {
	Tool    string `json:"tool"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK reports whether the tool is ready to use
func (s DependencyStatus) OK() bool {
	return s.Error == "" && s.Path != ""
}

// DependencyReport is the result of checking both tools
type DependencyReport struct {
	Fetcher   DependencyStatus `json:"fetcher"`
	Converter DependencyStatus `json:"converter"`
}

// Ready reports whether both tools are usable
func (r DependencyReport) Ready() bool {
	return r.Fetcher.OK() && r.Converter.OK()
}
