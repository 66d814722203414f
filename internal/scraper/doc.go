// Package scraper fetches institutional event pages and extracts events
// from them.
//
// Each configured source has a kind that selects its extractor: listing
// pages with title and date fields, embedded activity lists with English
// dates, The Events Calendar list views, and a generic keyword scan for
// pages without a usable structure. A source never returns an error.
// Failures and empty pages become a single sentinel event so one broken
// site cannot hide the others.
package scraper
