package cmd

// Exit codes for the employees-harness CLI
const (
	// ExitSuccess indicates every case passed
	ExitSuccess = 0

	// ExitCaseFailure indicates one or more cases failed
	ExitCaseFailure = 1

	// ExitConfigError indicates a configuration or resource error
	ExitConfigError = 3

	// ExitNetworkError indicates the system under test was unreachable
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
