// Package email provides the outbound email transport used by the
// notification engine's email channel.
//
// The Sender interface is the only surface the engine depends on. Two
// implementations ship with the package:
//
//   - PostmarkClient sends through Postmark's transactional message stream
//     and tags each message for provider-side analytics.
//   - DevSender writes each email to disk as an HTML body plus a JSON
//     metadata file, for local development without a provider account.
//
// Configuration is environment-driven through the Config struct.
package email
