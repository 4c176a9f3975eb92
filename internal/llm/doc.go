// Package llm generates chat completions.
//
// A Generator takes an ordered list of messages and returns the assistant
// reply. Two backends are available: OpenAI chat completions (the default)
// and the Anthropic Messages API. Every call is bounded by a timeout and
// failures surface as *v1.RemoteAPIError; nothing is retried.
package llm
