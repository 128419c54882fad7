package transcribe

// NewClientWithTranscriber exposes the mock-injection constructor to tests.
var NewClientWithTranscriber = newClient
