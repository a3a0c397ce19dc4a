// Package ticket holds the support-ticket domain types and their validation
// rules, including the placeholder-scrape patterns rejected during import.
package ticket
