// Package pipeline runs the scrape, analyze, summarize and report flow and
// manages the tasks that execute it in the background.
//
// A Pipeline run:
//   - scrapes every requested source
//   - analyzes items in batches through the orchestrator, paced by a rate limiter
//   - optionally generates storyboards
//   - summarizes the batch and persists a report
//
// The TaskManager wraps runs in persisted tasks and publishes lifecycle
// events so a worker pool can pick them up.
package pipeline
