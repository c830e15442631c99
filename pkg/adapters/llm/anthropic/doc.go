// Package anthropic implements the Claude backend with the official SDK.
package anthropic
