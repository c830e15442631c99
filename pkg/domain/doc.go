// Package domain defines the data types shared across ytscope: scraped
// content items, model-produced analyses and storyboards, reports, pipeline
// tasks and the events published while tasks run.
package domain
