package main

const (
	version = "1.0.0"
)

// exit codes, one per startup stage
const (
	successCode = iota
	configPathErr
	configLoadErr
	configGetErr
	loggingErr
	catalogErr
	stripeErr
	provisioningErr
	relayDatabaseErr
	renewalsErr
	serverErr
)
