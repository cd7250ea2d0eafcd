// Package mail provides the bulk send core: HTML compaction of the message
// template, lossy decoding of uploaded template bytes, and a dispatcher that
// submits one message per recipient over a single authenticated SMTP session.
package mail
