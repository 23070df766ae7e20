// Package realestate implements the Korean real estate tool operations:
// district lookup, MOLIT transaction prices, Applyhome subscription notices
// and Onbid category codes, plus the loan, savings and cashflow
// calculators that need no upstream.
//
// A Service validates parameters, picks the API key of the family, builds
// the upstream URL and hands it to a Fetcher (normally *fetch.Pipeline).
// Bodies are parsed here, so a body that transported fine but carries an
// error result code is reported as an api_error and evicted from the
// fetcher's cache.
//
// Amounts are reported in units of 10,000 KRW as published upstream.
package realestate
