package featurekit

// This file exports internal functions for testing purposes only.

// GetUserAgentForTest exposes the getUserAgent function for external tests.
func GetUserAgentForTest() string {
	return getUserAgent()
}

// ModuleVersionForTest exposes moduleVersion for external tests.
var ModuleVersionForTest = moduleVersion
