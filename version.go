package main

// Version is the application version, injected at build time via
// -ldflags "-X main.Version=x.y.z" for release builds.
var Version = "0.4.0"
