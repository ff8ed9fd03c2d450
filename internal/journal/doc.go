// Package journal persists dispatch outcomes to the command journal.
//
// Every job the dispatcher completes lands here, whether the publish
// succeeded or failed. The journal is the durable answer to "what left
// this device and when": connect and publish failures are recorded
// alongside successful sends instead of vanishing, and the API exposes
// the journal for operators to audit.
//
// Entries are append-only. Old rows are removed by Prune, typically on
// a retention schedule owned by the composing application.
package journal
