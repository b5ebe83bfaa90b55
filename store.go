package crossprefs

// Store is a key/value preference bucket scoped by a namespace id.
// An empty string means the key is unset; Get never fails.
type Store interface {
	Namespace() string
	Get(key string) string
	Put(key, value string)
	IsEmpty() bool
}

// Preference keys used inside a namespace.
const (
	KeyBuildToolsPath = "buildToolsPath"
	KeyToolchainName  = "toolchain.name"

	toolchainKeyPrefix = "toolchain."
)

// ToolchainPathKey returns the key holding the explicit path of a toolchain.
func ToolchainPathKey(name string) string {
	return toolchainKeyPrefix + name + ".path"
}

// ToolchainSearchPathKey returns the key holding the search path of a toolchain.
func ToolchainSearchPathKey(name string) string {
	return toolchainKeyPrefix + name + ".searchPath"
}

// ToolchainOSSearchPathKey returns the key holding an OS-specific search path
// override, usually set by a product customization file.
func ToolchainOSSearchPathKey(name, goos string) string {
	return toolchainKeyPrefix + name + ".osSearchPath." + goos
}
