// Package crawler implements the resumable crawl pipeline: the persisted
// field/region work queue, the coordinator that walks it, and the ports
// (listing, posting, extraction, job store, queue store) it drives.
//
// A run pops one combination at a time. Success shortens and re-persists the
// queue; a combination-level failure persists the queue unchanged and halts,
// so the next scheduled run resumes from the same head.
package crawler
