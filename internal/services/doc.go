// Package services wraps the external facilities the build pipeline depends on.
//
// # Duration Probing
//
// The [Prober] interface resolves the playback length of one track. Every call yields exactly one duration or
// one error wrapping [shared.ErrProbeFailed]; implementations hold no per-call state and are safe to call from
// many goroutines at once.
//
//   - [OggProber] : reads Ogg Vorbis and Ogg Opus headers and the final granule position in pure Go
//   - [MP3Prober] : sums MPEG frame durations with github.com/tcolgate/mp3
//   - [FFProbe] : runs ffprobe for everything else
//   - [ChainProber] : sniffs the container and dispatches, falling back to ffprobe
//
// # Remote Assets
//
// [AssetClient] fetches binary resources (the default pack icon) over HTTP with context-bound requests.
//
// # Tags
//
// [ReadTags] extracts the title and embedded artwork of a track with github.com/dhowden/tag.
//
// # Preview Playback
//
// [Player] runs an external command (ffplay by default) against a materialized track file.
package services
