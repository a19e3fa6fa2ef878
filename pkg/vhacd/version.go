package vhacd

var (
	Version    = "v0.0.0-in-progress"
	EngineName = "hierarchical"
)

// WrapperVersion returns the semantic version populated at build time via
// ldflags. In development it defaults to v0.0.0-in-progress.
func WrapperVersion() string {
	return Version
}

// EngineVersion returns the name of the default decomposition engine, with
// the module version appended.
func EngineVersion() string {
	return EngineName + "/" + Version
}
