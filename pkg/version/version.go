package version

// Version is the release version, overridden at link time with
// -ldflags "-X skyvario/pkg/version.Version=...".
var Version = "v0.3.0"
