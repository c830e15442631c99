// Package openai is a chat-completions client for OpenAI and the providers
// that mirror its API (DeepSeek, OpenRouter).
package openai
