// Package llm adapts language-model backends to ports.ProviderClient.
//
// Vendor packages (anthropic, openai) implement the small Completer
// interface; Service layers the prompt templates, JSON decoding and
// parse-failure defaults on top so every provider behaves the same to the
// orchestrator. NewFactories wires the configured vendors into lazily built
// clients.
package llm
