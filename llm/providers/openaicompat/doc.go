// Package openaicompat implements llm.Generator over any OpenAI-compatible
// chat completions endpoint.
//
// The same client serves OpenAI for email and reply drafting and Perplexity
// (model sonar-pro) for market research; only the base URL, endpoint path and
// model differ.
//
// Usage:
//
//	p := openaicompat.New(openaicompat.Config{
//	    ProviderName: "perplexity",
//	    APIKey:       cfg.APIKey,
//	    BaseURL:      "https://api.perplexity.ai",
//	    EndpointPath: "/chat/completions",
//	    Model:        "sonar-pro",
//	}, logger)
package openaicompat
