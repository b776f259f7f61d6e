// Package models defines the plain data types shared by the sync engine.
//
// The package contains two categories of types:
//
// 1. Source records produced by the schedule scraper
//   - [Track] : one played song, identity is the (artist, song) pair
//   - [Show] : one broadcast, ID is strictly increasing within a station
//   - [ShowEpisode] : a show together with its track listing
//   - [ShowGroup] : every episode of one (station, title) pair in the window
//
// 2. Remote playlist system records
//   - [ResolvedTrack] : a search result; a nil pointer means "no match" and is cacheable
//   - [PlaylistRecord] : an owned remote playlist with its parsed watermark
//
// Groups are built fresh every run and never persisted.
package models
