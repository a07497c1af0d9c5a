// Package searchconsole reads site lists and search analytics from the
// Google Search Console API (searchconsole/v1, webmasters scope).
package searchconsole
