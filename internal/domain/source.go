package domain

// Source identifies where a candidate event came from.
type Source string

const (
	SourceLaunchFeed Source = "LAUNCH_FEED"
	SourceManual     Source = "MANUAL"
)

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is a valid value.
func (s Source) IsValid() bool {
	return s == SourceLaunchFeed || s == SourceManual
}
