// Package youtube scrapes YouTube search results without an API key.
//
// Search pages embed their results as a JSON blob assigned to ytInitialData;
// the scraper cuts that object out of the page and walks it for
// videoRenderer entries. Watch pages can optionally be fetched to pick up
// the full description and keyword tags from their meta elements.
package youtube
