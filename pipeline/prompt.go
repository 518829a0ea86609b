package pipeline

import "fmt"

// EnrichedContext joins the job summary with the market research.
func EnrichedContext(summary, research string) string {
	return fmt.Sprintf("%s\n\n--- Additional Market Research ---\n\n%s", summary, research)
}

// QueryPrompt asks the generator for people-search queries in the
// "Primary Search Query N:" format the extractor prefers.
func QueryPrompt(summary, research string) string {
	return fmt.Sprintf(`You are generating highly targeted, domain-specific LinkedIn search queries for a recruitment pipeline.

**CONTEXT:**
Below is the enriched job description context, including the original job description extraction and market research.

**YOUR TASK:**
Generate 3-5 highly specific, domain-targeted LinkedIn search queries that will find candidates with EXACT relevance to this role.

**REQUIREMENTS:**
1. Each query MUST combine multiple specific elements: job title + technologies + domain/industry + experience level
2. Do NOT use generic terms like "Software Engineer" alone - always combine with specific context
3. Extract specific technologies, tools, frameworks mentioned in both the job description and market research
4. Include industry/domain keywords (e.g., FinTech, Healthcare, SaaS, E-commerce)
5. Match the experience level and seniority requirements
6. Use insights from the research about trending skills and market demands
7. Each query should be 5-15 words and highly targeted

**FORMAT:**
Provide your queries in this exact format:
**Primary Search Query 1:**
[Specific query here]

**Primary Search Query 2:**
[Specific query here]

...and so on

**ENRICHED JOB DESCRIPTION CONTEXT:**
%s

Generate the queries now, ensuring they are highly targeted and domain-specific.`, EnrichedContext(summary, research))
}
