// Package anchors looks up documentation section anchors. The build system
// records one Redis key per anchor redirect,
//
//	redirects:v3:<lang>:<version>:<project>:<anchor>:<url>
//
// and a lookup returns the URL of every key whose anchor matches.
package anchors
