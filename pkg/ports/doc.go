// Package ports declares the interfaces between the ytscope application core
// and its adapters: language-model providers, scrapers, storage, the event bus
// and metrics.
package ports
