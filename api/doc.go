// Package api holds the request and response bodies of the recruitflow HTTP API.
//
// # API Overview
//
// recruitflow exposes:
//   - Pipeline runs streamed over SSE or WebSocket
//   - Campaign reads, activation, pause and resume
//   - The AgentMail inbound-message webhook
//   - Candidate acceptance and meeting lifecycle calls
//   - Campaign Q&A
//   - Health monitoring and metrics
//
// Every failed call answers with {"error": "<message>"} and a 4xx/5xx status.
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
package api
