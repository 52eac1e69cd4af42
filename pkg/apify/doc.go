// Package apify is a small client for the Apify Instagram scraper actor.
//
// One FetchPosts call starts one synchronous actor run for one profile:
//
//	POST {base}/v2/acts/apify~instagram-scraper/run-sync-get-dataset-items?token=...
//	{"directUrls":["https://www.instagram.com/natgeo/"],"resultsLimit":5}
//
// and decodes the returned dataset items. Non-2xx answers, transport
// failures and undecodable bodies come back as *errors.Error values so
// callers can tell a bad token from a private account from a timeout.
//
// The token travels in the query string; it is stripped from every URL
// and error the client logs.
package apify
