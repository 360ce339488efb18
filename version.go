package competitionmonitor

// Version is overridden at build time with -ldflags "-X github.com/a-h/competitionmonitor.Version=...".
var Version = "devel"
