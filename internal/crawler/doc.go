// Package crawler defines the core types, capability interfaces, and skip
// taxonomy shared by the fellowship discovery, crawl, and sync pipeline.
package crawler
